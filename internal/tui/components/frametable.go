package components

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"

	"github.com/allbin/go-bootserial/internal/tui/styles"
)

const (
	columnKeyTime  = "time"
	columnKeyKind  = "kind"
	columnKeyBytes = "bytes"
	columnKeyHex   = "hex"
	columnKeyASCII = "ascii"

	// header row plus top, header and bottom borders
	tableChromeHeight = 4
	minTableWidth     = 40
)

// FrameTable shows the most recent frames that fit its height, newest last
type FrameTable struct {
	formatter *DataFormatter
	frames    []FrameMsg
	width     int
	height    int
}

func NewFrameTable(width, height int) *FrameTable {
	ft := &FrameTable{formatter: NewDataFormatter(true, true)}
	ft.SetSize(width, height)
	return ft
}

func (ft *FrameTable) SetSize(width, height int) {
	if width < minTableWidth {
		width = minTableWidth
	}
	if height < tableChromeHeight+1 {
		height = tableChromeHeight + 1
	}
	ft.width = width
	ft.height = height
}

func (ft *FrameTable) Formatter() *DataFormatter {
	return ft.formatter
}

// SetFrames replaces the frames to display. The slice is not copied.
func (ft *FrameTable) SetFrames(frames []FrameMsg) {
	ft.frames = frames
}

// VisibleRows is how many frames fit
func (ft *FrameTable) VisibleRows() int {
	return ft.height - tableChromeHeight
}

func (ft *FrameTable) columns() []table.Column {
	columns := []table.Column{
		table.NewColumn(columnKeyTime, "Time", 14),
		table.NewColumn(columnKeyKind, "Dir", 9),
		table.NewColumn(columnKeyBytes, "Bytes", 6),
	}

	mode := ft.formatter.GetDisplayMode()
	if mode.ShowHex {
		columns = append(columns, table.NewFlexColumn(columnKeyHex, "Hex", 3))
	}
	if mode.ShowASCII {
		columns = append(columns, table.NewFlexColumn(columnKeyASCII, "ASCII", 1))
	}
	return columns
}

func (ft *FrameTable) rows() []table.Row {
	frames := ft.frames
	if n := ft.VisibleRows(); len(frames) > n {
		frames = frames[len(frames)-n:]
	}

	rows := make([]table.Row, 0, len(frames))
	for _, f := range frames {
		data := table.RowData{
			columnKeyTime: f.Timestamp.Format("15:04:05.000"),
			columnKeyKind: table.NewStyledCell(f.Kind.String(),
				lipgloss.NewStyle().Foreground(f.Kind.color()).Bold(true)),
		}

		switch f.Kind {
		case FrameTimeout, FrameReset:
			data[columnKeyHex] = f.Note
			data[columnKeyASCII] = f.Note
		default:
			data[columnKeyBytes] = len(f.Data)
			data[columnKeyHex] = Hex(f.Data)
			data[columnKeyASCII] = ASCII(f.Data)
		}
		rows = append(rows, table.NewRow(data))
	}
	return rows
}

func (ft *FrameTable) View() string {
	return table.New(ft.columns()).
		WithRows(ft.rows()).
		HeaderStyle(styles.TableHeaderStyle).
		WithBaseStyle(styles.TableBaseStyle).
		WithTargetWidth(ft.width).
		WithFooterVisibility(false).
		View()
}
