/*
Copyright © 2025 Mathias Djärv <mathias.djarv@allbinary.se>
*/
package cmd

import "github.com/allbin/go-bootserial"

func newTermiosChannel(device string) (channel, error) {
	p, err := bootserial.NewPort(device)
	if err != nil {
		return nil, err
	}
	return p, nil
}
