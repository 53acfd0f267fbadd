// Package browser navigates the image tree on the SD card one entry at a time.
//
// Each directory is listed with subdirectories suffixed "/" and, below the
// root, a leading ".." entry. A window of display.Lines entries scrolls to
// keep the selection visible.
package browser

import (
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/sweeney/eprom-ui/internal/display"
)

// Parent is the entry that leads back up one level.
const Parent = ".."

// BinarySuffix marks files that can be loaded into the emulator.
const BinarySuffix = ".bin"

// IsBinaryName reports whether name looks like a loadable image.
func IsBinaryName(name string) bool {
	return strings.HasSuffix(name, BinarySuffix)
}

// IsDirName reports whether name is a listed subdirectory.
func IsDirName(name string) bool {
	return strings.HasSuffix(name, "/")
}

type node struct {
	parent   *node
	dir      string // fs path, "." for the root
	entries  []string
	top      int
	selected int
}

// Browser tracks the current directory and selection.
// It is not safe for concurrent use.
type Browser struct {
	fsys  fs.FS
	label string
	cur   *node
}

// New lists the root of fsys. label is the name shown for the root, such as "/sd".
func New(fsys fs.FS, label string) (*Browser, error) {
	b := &Browser{fsys: fsys, label: label}
	root, err := b.open(nil, ".")
	if err != nil {
		return nil, err
	}
	b.cur = root
	return b, nil
}

func (b *Browser) open(parent *node, dir string) (*node, error) {
	des, err := fs.ReadDir(b.fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}

	n := &node{parent: parent, dir: dir}
	if parent != nil {
		n.entries = append(n.entries, Parent)
	}
	for _, de := range des {
		name := de.Name()
		if de.IsDir() {
			name += "/"
		}
		n.entries = append(n.entries, name)
	}
	return n, nil
}

// Down moves the selection one entry down. It reports whether it moved.
func (b *Browser) Down() bool {
	n := b.cur
	if n.selected >= len(n.entries)-1 {
		return false
	}
	n.selected++
	if n.selected == n.top+display.Lines {
		n.top++
	}
	return true
}

// Up moves the selection one entry up. It reports whether it moved.
func (b *Browser) Up() bool {
	n := b.cur
	if n.selected <= 0 {
		return false
	}
	n.selected--
	if n.selected < n.top {
		n.top--
	}
	return true
}

// Click activates the selected entry: ".." returns to the parent with its
// selection intact, a directory is entered, and anything else is ignored.
// It reports whether the current directory changed.
func (b *Browser) Click() (bool, error) {
	name := b.Selected()
	switch {
	case name == Parent:
		if b.cur.parent == nil {
			return false, nil
		}
		b.cur = b.cur.parent
		return true, nil
	case IsDirName(name):
		child, err := b.open(b.cur, b.SelectedPath())
		if err != nil {
			return false, err
		}
		b.cur = child
		return true, nil
	default:
		return false, nil
	}
}

// Selected returns the selected entry name, or "" in an empty directory.
func (b *Browser) Selected() string {
	n := b.cur
	if len(n.entries) == 0 {
		return ""
	}
	return n.entries[n.selected]
}

// SelectedPath returns the fs path of the selected entry.
func (b *Browser) SelectedPath() string {
	return path.Join(b.cur.dir, strings.TrimSuffix(b.Selected(), "/"))
}

// Index returns the selected offset within the current directory.
func (b *Browser) Index() int {
	return b.cur.selected
}

// Len returns the number of entries in the current directory.
func (b *Browser) Len() int {
	return len(b.cur.entries)
}

// Path returns the display path of the current directory.
func (b *Browser) Path() string {
	if b.cur.dir == "." {
		return b.label
	}
	return b.label + "/" + b.cur.dir
}

// Lines returns the visible window with the selection marked.
func (b *Browser) Lines() []string {
	n := b.cur
	end := n.top + display.Lines
	if end > len(n.entries) {
		end = len(n.entries)
	}

	lines := make([]string, 0, display.Lines)
	for i := n.top; i < end; i++ {
		marker := "  "
		if i == n.selected {
			marker = "> "
		}
		lines = append(lines, marker+n.entries[i])
	}
	return lines
}

// Render draws the visible window.
func (b *Browser) Render(d display.Display) error {
	d.Clear()
	for i, line := range b.Lines() {
		d.Text(i, line)
	}
	return d.Show()
}
