package game

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/federkiel/internal/narrative"
	"github.com/MrWong99/federkiel/internal/wire"
)

// defaultWizardName is used when the player skips the name prompt.
const defaultWizardName = "Unbekannter Zauberer"

// houses the Sorting Hat offers, in menu order.
var houses = []struct {
	name  string
	motto string
}{
	{"Gryffindor", "Mut und Tapferkeit"},
	{"Slytherin", "Ehrgeiz und List"},
	{"Ravenclaw", "Weisheit und Kreativität"},
	{"Hufflepuff", "Treue und Fleiß"},
}

// styles groups the lipgloss styles of the terminal UI.
type styles struct {
	banner    lipgloss.Style
	heading   lipgloss.Style
	item      lipgloss.Style
	action    lipgloss.Style
	help      lipgloss.Style
	failure   lipgloss.Style
	separator lipgloss.Style
}

func newStyles() styles {
	gold := lipgloss.Color("#d4af37")
	dim := lipgloss.Color("#6e7681")
	return styles{
		banner:    lipgloss.NewStyle().Bold(true).Foreground(gold).Border(lipgloss.DoubleBorder()).Padding(0, 2),
		heading:   lipgloss.NewStyle().Bold(true).Foreground(gold),
		item:      lipgloss.NewStyle().Foreground(lipgloss.Color("#00c97b")),
		action:    lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")),
		help:      lipgloss.NewStyle().Foreground(dim),
		failure:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ff6b6b")),
		separator: lipgloss.NewStyle().Foreground(dim),
	}
}

// CLI is the interactive terminal front end of the game.
type CLI struct {
	orch   *Orchestrator
	in     *bufio.Scanner
	out    io.Writer
	styles styles
}

// NewCLI creates a CLI reading player input from in and rendering to out.
func NewCLI(orch *Orchestrator, in io.Reader, out io.Writer) *CLI {
	return &CLI{
		orch:   orch,
		in:     bufio.NewScanner(in),
		out:    out,
		styles: newStyles(),
	}
}

// Run drives the game loop until the player quits or input ends.
func (c *CLI) Run(ctx context.Context) error {
	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, c.styles.banner.Render("HARRY POTTER TEXT-ADVENTURE"))
	fmt.Fprintln(c.out)

	p := c.orch.Player()
	if p.Name == "" {
		if !c.onboard() {
			return nil
		}
	} else {
		fmt.Fprintf(c.out, "Willkommen zurück, %s aus %s!\n\n", p.Name, p.HouseName)
	}

	c.printStatus()
	if c.orch.Active() {
		c.printResume()
	} else {
		c.printCommands()
	}

	for {
		if ctx.Err() != nil {
			c.orch.Shutdown()
			return ctx.Err()
		}
		input, ok := c.readLine("\n> ")
		if !ok {
			c.orch.Shutdown()
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "beenden":
			c.orch.Shutdown()
			fmt.Fprintln(c.out, "\nDanke fürs Spielen! Bis zum nächsten Abenteuer!")
			return nil
		case "inventar":
			c.printInventory()
			continue
		case "geschichte":
			c.printHistory()
			continue
		case "aufgeben":
			if c.orch.Active() {
				c.abandon()
				continue
			}
		case "start":
			if !c.orch.Active() {
				if err := c.orch.StartAdventure(); err != nil {
					fmt.Fprintln(c.out, c.styles.failure.Render("Abenteuer konnte nicht gestartet werden: "+err.Error()))
					continue
				}
			}
		}

		if !c.orch.Active() {
			fmt.Fprintln(c.out, c.styles.help.Render("Tippe 'start' um ein neues Abenteuer zu beginnen!"))
			continue
		}
		c.playTurn(ctx, input)
	}
}

// onboard walks a new player through name and house selection. It returns
// false when input ends before onboarding finishes.
func (c *CLI) onboard() bool {
	fmt.Fprintln(c.out, "Willkommen, neuer Zauberer!")
	fmt.Fprintln(c.out)

	name, ok := c.readLine("Wie lautet dein Name? ")
	if !ok {
		return false
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultWizardName
	}

	fmt.Fprintln(c.out, "\nWähle dein Haus:")
	for i, h := range houses {
		fmt.Fprintf(c.out, "  [%d] %s - %s\n", i+1, h.name, h.motto)
	}
	choice, ok := c.readLine("\nDeine Wahl (1-4): ")
	if !ok {
		return false
	}
	house := houses[0].name
	if idx := strings.TrimSpace(choice); len(idx) == 1 && idx >= "1" && idx <= "4" {
		house = houses[idx[0]-'1'].name
	}

	c.orch.Onboard(name, house)
	fmt.Fprintf(c.out, "\nWillkommen in %s, %s!\n\n", house, name)
	return true
}

// playTurn runs one exchange and renders its events.
func (c *CLI) playTurn(ctx context.Context, action string) {
	sep := c.styles.separator.Render(strings.Repeat("─", 60))
	fmt.Fprintln(c.out, "\n"+sep)
	fmt.Fprintln(c.out)

	err := c.orch.PlayTurn(ctx, action, TurnEvents{
		Delta: func(text string) {
			fmt.Fprint(c.out, text)
		},
		NewItem: func(item wire.NewItem) {
			fmt.Fprintln(c.out, "\n"+c.styles.item.Render("Neuer Gegenstand erhalten: "+item.Name+"!"))
		},
		Actions: func(actions []string) {
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, c.styles.help.Render("Vorschläge:"))
			for _, a := range actions {
				fmt.Fprintln(c.out, c.styles.action.Render("  • "+a))
			}
		},
		Completed: func(title, summary string) {
			fmt.Fprintln(c.out)
			fmt.Fprintln(c.out, c.styles.banner.Render("ABENTEUER ABGESCHLOSSEN!"))
			fmt.Fprintf(c.out, "\n%s\n  %s\n", c.styles.heading.Render(`"`+title+`"`), summary)
			fmt.Fprintln(c.out, c.styles.help.Render("\nTippe 'start' um ein neues Abenteuer zu beginnen!"))
		},
	})

	fmt.Fprintln(c.out)
	fmt.Fprintln(c.out, sep)
	if err != nil {
		fmt.Fprintln(c.out, c.styles.failure.Render("Fehler: "+err.Error()))
		fmt.Fprintln(c.out, c.styles.help.Render("Versuch es noch einmal."))
	}
}

// abandon asks for confirmation before discarding the running adventure.
func (c *CLI) abandon() {
	confirm, ok := c.readLine("Bist du sicher? Du verlierst allen Fortschritt dieses Abenteuers. (ja/nein): ")
	if !ok || strings.ToLower(strings.TrimSpace(confirm)) != "ja" {
		return
	}
	if err := c.orch.Abandon(); err != nil {
		fmt.Fprintln(c.out, c.styles.failure.Render("Abbrechen fehlgeschlagen: "+err.Error()))
		return
	}
	fmt.Fprintln(c.out, "\nAbenteuer abgebrochen.")
	fmt.Fprintln(c.out, c.styles.help.Render("Tippe 'start' um ein neues Abenteuer zu beginnen."))
}

func (c *CLI) printStatus() {
	p := c.orch.Player()
	fmt.Fprintln(c.out, c.styles.heading.Render("Status"))
	fmt.Fprintf(c.out, "  Abgeschlossene Abenteuer: %d\n", p.Stats.AdventuresCompleted)
	fmt.Fprintf(c.out, "  Gegenstände im Inventar:  %d\n", len(p.Inventory))
	for i, item := range p.Inventory {
		if i == 5 {
			fmt.Fprintf(c.out, "    ... und %d weitere\n", len(p.Inventory)-5)
			break
		}
		fmt.Fprintf(c.out, "    • %s\n", item.Name)
	}
	fmt.Fprintln(c.out)
}

func (c *CLI) printResume() {
	cur := c.orch.Player().Current
	title := cur.Title
	if title == "" {
		title = "Unbenannt"
	}
	fmt.Fprintln(c.out, c.styles.heading.Render("Laufendes Abenteuer gefunden!"))
	fmt.Fprintf(c.out, "  %q\n", title)
	fmt.Fprintf(c.out, "  Gestartet: %s\n", cur.StartedAt.Format("02.01.2006 15:04"))
	fmt.Fprintf(c.out, "  Züge: %d\n", cur.Turns())

	if last := cur.LastNarratorText(); last != "" {
		sep := c.styles.separator.Render(strings.Repeat("─", 60))
		fmt.Fprintln(c.out, "\n"+sep)
		fmt.Fprintln(c.out, c.styles.heading.Render("\nZuletzt:"))
		fmt.Fprintln(c.out, "\n"+narrative.StripMarkdown(narrative.Clean(last)))
		fmt.Fprintln(c.out, "\n"+sep)
	}

	fmt.Fprintln(c.out, c.styles.help.Render("\nBefehle:"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • Beschreibe deine Aktion frei"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'inventar' - Zeige dein Inventar"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'aufgeben' - Abenteuer abbrechen (kein Fortschritt)"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'beenden' - Spiel beenden"))
}

func (c *CLI) printCommands() {
	fmt.Fprintln(c.out, c.styles.heading.Render("Bereit für ein neues Abenteuer!"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'start' - Neues Abenteuer beginnen"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'inventar' - Zeige dein Inventar"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'geschichte' - Zeige vergangene Abenteuer"))
	fmt.Fprintln(c.out, c.styles.help.Render("  • 'beenden' - Spiel beenden"))
}

func (c *CLI) printInventory() {
	p := c.orch.Player()
	fmt.Fprintln(c.out, "\n"+c.styles.heading.Render("Dein Inventar"))
	if len(p.Inventory) == 0 {
		fmt.Fprintln(c.out, "  (leer)")
		return
	}
	for _, item := range p.Inventory {
		fmt.Fprintf(c.out, "  • %s\n", c.styles.item.Render(item.Name))
		fmt.Fprintf(c.out, "    %s\n", item.Description)
	}
}

func (c *CLI) printHistory() {
	p := c.orch.Player()
	fmt.Fprintln(c.out, "\n"+c.styles.heading.Render("Deine Abenteuer-Geschichte"))
	if len(p.CompletedAdventures) == 0 {
		fmt.Fprintln(c.out, "  Du hast noch keine Abenteuer abgeschlossen.")
		return
	}
	for i, adv := range p.CompletedAdventures {
		fmt.Fprintf(c.out, "  %d. %q (%s)\n", i+1, adv.Title, adv.CompletedAt.Format("02.01.2006"))
		fmt.Fprintf(c.out, "     %s\n", adv.Summary)
	}
}

// readLine prompts and reads one input line. ok is false when input ended.
func (c *CLI) readLine(prompt string) (line string, ok bool) {
	fmt.Fprint(c.out, prompt)
	if !c.in.Scan() {
		return "", false
	}
	return c.in.Text(), true
}
