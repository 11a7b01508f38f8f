package banner

import (
	"bookload/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorBanner).
		Bold(true)

	ascii := `
    __                    __   __                __
   / /_  ____  ____  ____/ /__/ /   ____  ____ _/ /
  / __ \/ __ \/ __ \/ //_/ / __/ /  / __ \/ __ '/ __ /
 / /_/ / /_/ / /_/ / ,< / / /_/ /__/ /_/ / /_/ / /_/ /
/_.___/\____/\____/_/|_/_/\__/_____/\____/\__,_/\__,_/ `

	return "\n" + style.Render(ascii) + "\n"
}
