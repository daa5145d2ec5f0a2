package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/dustin/go-humanize"

	"github.com/desertthunder/qlink/internal/models"
)

var _ list.Item = linkItem{}

// linkItem wraps [models.Link] to implement [list.Item].
type linkItem struct {
	link *models.Link
}

func (i linkItem) FilterValue() string {
	return i.link.Trigger().Name + " " + i.link.Target().Name
}

func (i linkItem) Title() string {
	return fmt.Sprintf("%d. %s", i.link.Sequence(), i.link.Trigger())
}

func (i linkItem) Description() string {
	return fmt.Sprintf("→ %s • %s", i.link.Target(), humanize.Time(i.link.UpdatedAt()))
}

func linkItems(links []*models.Link) []list.Item {
	items := make([]list.Item, len(links))
	for i, l := range links {
		items[i] = linkItem{link: l}
	}
	return items
}
