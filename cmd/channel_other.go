//go:build !linux

/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import "errors"

func newTermiosChannel(string) (channel, error) {
	return nil, errors.New("the termios backend needs Linux; use --backend portable")
}
