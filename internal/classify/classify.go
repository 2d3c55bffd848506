// Package classify maps eraseblock type codes to their role and display colours.
package classify

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/deploymenttheory/go-ffsp/internal/types"
)

// ErrUnknownEraseblockType is returned for a type code the inspector does not
// know. This usually means the driver and the inspector disagree on version.
var ErrUnknownEraseblockType = errors.New("unknown eraseblock type")

// Role is the semantic name of an eraseblock type.
type Role string

const (
	RoleSuper       Role = "super"
	RoleDentryInode Role = "dentry_inode"
	RoleDentryClin  Role = "dentry_clin"
	RoleFileInode   Role = "file_inode"
	RoleFileClin    Role = "file_clin"
	RoleEbin        Role = "ebin"
	RoleEmpty       Role = "empty"
)

// Style is the role and colour pair assigned to one type code.
type Style struct {
	Role       Role
	Foreground lipgloss.Color
	Background lipgloss.Color
}

// Render paints s in the style's colours.
func (s Style) Render(text string) string {
	return s.Lipgloss().Render(text)
}

// Lipgloss returns the style as a lipgloss style for composition.
func (s Style) Lipgloss() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(s.Foreground).Background(s.Background)
}

const (
	black     = lipgloss.Color("#000000")
	white     = lipgloss.Color("#ffffff")
	yellow    = lipgloss.Color("#ffff00")
	blue      = lipgloss.Color("#0000ff")
	darkBlue  = lipgloss.Color("#000080")
	lightGray = lipgloss.Color("#c0c0c0")
	darkGray  = lipgloss.Color("#808080")
	red       = lipgloss.Color("#ff0000")
	darkGreen = lipgloss.Color("#008000")
)

var styles = map[types.EraseblockType]Style{
	types.EbTypeSuper:       {Role: RoleSuper, Foreground: black, Background: yellow},
	types.EbTypeDentryInode: {Role: RoleDentryInode, Foreground: white, Background: blue},
	types.EbTypeDentryClin:  {Role: RoleDentryClin, Foreground: white, Background: darkBlue},
	types.EbTypeFileInode:   {Role: RoleFileInode, Foreground: black, Background: lightGray},
	types.EbTypeFileClin:    {Role: RoleFileClin, Foreground: white, Background: darkGray},
	types.EbTypeEbin:        {Role: RoleEbin, Foreground: white, Background: red},
	types.EbTypeEmpty:       {Role: RoleEmpty, Foreground: white, Background: darkGreen},
}

// Classify returns the style for an eraseblock type code. Unknown codes are an
// error, never a default.
func Classify(code uint64) (Style, error) {
	if code > 0xff {
		return Style{}, fmt.Errorf("%w: 0x%x", ErrUnknownEraseblockType, code)
	}
	style, ok := styles[types.EraseblockType(code)]
	if !ok {
		return Style{}, fmt.Errorf("%w: 0x%02x", ErrUnknownEraseblockType, code)
	}
	return style, nil
}
