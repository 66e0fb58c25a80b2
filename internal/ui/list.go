package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/ferrova/tidalsnap/internal/models"
)

var _ list.Item = mixItem{}

// mixItem wraps [models.MixDescriptor] to implement [list.Item].
//
// The checkbox in the title reflects the model's live selection set, so the
// item holds a reference to it rather than a point-in-time copy.
type mixItem struct {
	mix      models.MixDescriptor
	selected map[string]bool
}

func (i mixItem) FilterValue() string { return i.mix.Title }

func (i mixItem) Title() string {
	box := "[ ]"
	if i.selected[i.mix.ID] {
		box = "[x]"
	}
	return box + " " + i.mix.Title
}

func (i mixItem) Description() string {
	if i.mix.SubTitle != "" {
		return i.mix.SubTitle
	}
	return i.mix.ID
}
