package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
)

const menuSeparator = "-"

// menuAction is one line of a popup menu.
type menuAction struct {
	Label  string
	Icon   fyne.Resource
	Action func()
}

func buildMenu(actions []menuAction) *fyne.Menu {
	items := make([]*fyne.MenuItem, 0, len(actions))
	for _, a := range actions {
		if a.Label == menuSeparator {
			items = append(items, fyne.NewMenuItemSeparator())
			continue
		}
		item := fyne.NewMenuItem(a.Label, a.Action)
		item.Icon = a.Icon
		items = append(items, item)
	}
	return fyne.NewMenu("", items...)
}

// attachmentActions lists the right-click actions for one attachment. A nil
// callback leaves its action out.
func attachmentActions(onRemove, onCopyPath func()) []menuAction {
	var actions []menuAction
	if onRemove != nil {
		actions = append(actions, menuAction{Label: "Remove", Icon: theme.DeleteIcon(), Action: onRemove})
	}
	if onCopyPath != nil {
		if len(actions) > 0 {
			actions = append(actions, menuAction{Label: menuSeparator})
		}
		actions = append(actions, menuAction{Label: "Copy path", Icon: theme.ContentCopyIcon(), Action: onCopyPath})
	}
	return actions
}

func popUpMenu(c fyne.Canvas, pos fyne.Position, actions []menuAction) {
	widget.ShowPopUpMenuAtPosition(buildMenu(actions), c, pos)
}
