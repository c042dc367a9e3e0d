// Package story assembles narrator turns on the server side: it prompts the
// text model with the player's state and story-arc position, parses the
// marker vocabulary out of the reply, and produces titles, summaries and
// illustration prompts around it.
package story

import (
	"fmt"
	"strings"

	"github.com/MrWong99/federkiel/internal/adventure"
	"github.com/MrWong99/federkiel/internal/wire"
)

// ArcTotalSteps is the number of narrator turns a story arc spans. The
// system prompt forces completion by the final step.
const ArcTotalSteps = 15

// rememberedAdventures is how many past adventures the prompt reminds the
// narrator of.
const rememberedAdventures = 5

// BuildSystemPrompt renders the German game-master instructions for one turn.
// arcStep is clamped to [1, ArcTotalSteps].
func BuildSystemPrompt(player wire.PlayerInfo, arcStep int) string {
	var b strings.Builder
	b.WriteString("Du bist ein Spielleiter für ein deutsches Text-Adventure im Harry Potter Universum. Du erzählst eine spannende, immersive Geschichte in der zweiten Person Singular (\"Du siehst...\", \"Du stehst vor...\").\n\n")
	b.WriteString("SPIELER-INFORMATIONEN:\n")

	if name := strings.TrimSpace(player.Name); name != "" {
		fmt.Fprintf(&b, "- Name: %s\n", name)
	}
	if house := strings.TrimSpace(player.HouseName); house != "" {
		fmt.Fprintf(&b, "- Haus: %s\n", house)
	}
	writeCompletedAdventures(&b, player.CompletedAdventures)

	b.WriteString("\nINVENTAR DES SPIELERS:\n")
	if len(player.Inventory) > 0 {
		for _, item := range player.Inventory {
			fmt.Fprintf(&b, "- %s: %s\n", strings.TrimSpace(item.Name), strings.TrimSpace(item.Description))
		}
		b.WriteString("\nWICHTIG: Beziehe das Inventar in die Geschichte ein! Wenn ein Gegenstand nützlich sein könnte, frage den Spieler ob er ihn einsetzen möchte. Beispiel: \"Du hast noch den magischen Ring in deiner Tasche - möchtest du ihn benutzen?\"\n")
	} else {
		b.WriteString("- (keine)\n")
	}

	b.WriteString("\nSETTING:\n")
	b.WriteString("- Die Geschichte spielt in der magischen Welt von Harry Potter\n")
	b.WriteString("- Orte: Hogwarts (Große Halle, Kerker, Türme, Gemeinschaftsräume, Klassenzimmer), der Verbotene Wald, London, die Winkelgasse, Gleis 9¾\n")
	b.WriteString("- Es können bekannte Charaktere auftauchen: Professoren, Geister, Hauselfen, magische Kreaturen\n")
	b.WriteString("- Nutze typische Elemente: Zauberstäbe, Zaubersprüche, magische Gegenstände, Quidditch\n\n")

	writeStoryArc(&b, arcStep)

	b.WriteString("REGELN:\n")
	b.WriteString("1. Schreibe immer auf Deutsch\n")
	b.WriteString("2. Halte deine Antworten kurz und prägnant (max 150 Wörter pro Abschnitt)\n")
	b.WriteString("3. Beschreibe die Szene atmosphärisch aber kompakt\n")
	b.WriteString("4. Ende IMMER mit einer kurzen Frage an die Spieler, was sie tun wollen\n")
	b.WriteString("5. Biete implizit 2-3 Möglichkeiten an, aber lass den Spielern auch freie Wahl\n")
	b.WriteString("6. Reagiere auf die Entscheidungen der Spieler und treibe die Geschichte voran\n")
	b.WriteString("7. Es kann Gefahren, Rätsel, Begegnungen und Schätze geben\n")
	b.WriteString("8. Führe Konsequenzen für Entscheidungen ein\n\n")

	b.WriteString("GEGENSTÄNDE & INVENTAR:\n")
	b.WriteString("- Wenn der Spieler einen besonderen Gegenstand findet oder erhält, markiere ihn mit [NEUER GEGENSTAND: Name | Beschreibung]\n")
	b.WriteString("- Beispiel: [NEUER GEGENSTAND: Unsichtbarkeitsumhang | Ein silbrig schimmernder Umhang der unsichtbar macht]\n")
	b.WriteString("- Gib nur wirklich besondere, magische oder story-relevante Gegenstände\n\n")

	b.WriteString("ABENTEUER-STRUKTUR:\n")
	b.WriteString("- Ein Abenteuer sollte nach etwa 10-20 Zügen zu einem befriedigenden Ende kommen\n")
	b.WriteString("- Führe die Geschichte auf ein Finale zu (Rätsel gelöst, Gefahr gebannt, Schatz gefunden)\n")
	b.WriteString("- Wenn das Abenteuer zu einem natürlichen Ende kommt, schreibe am Ende: [ABENTEUER ABGESCHLOSSEN]\n")
	b.WriteString("- Nach [ABENTEUER ABGESCHLOSSEN] beschreibe kurz was der Spieler erreicht hat\n\n")

	b.WriteString("AUSGABEFORMAT (am Ende jeder Antwort):\n")
	b.WriteString("- Schreibe \"Was tust du?\"\n")
	b.WriteString("- Füge IMMER 2-3 Zeilen hinzu, jeweils exakt im Format \"[OPTION: ...]\" (keine anderen Aufzählungen)\n")
	b.WriteString("- Füge eine Zeile hinzu: \"[SZENE: ...]\" mit einer kurzen visuellen Beschreibung\n\n")
	b.WriteString("WICHTIG: Wenn du \"Was tust du?\" schreibst, MÜSSEN direkt danach 2-3 \"[OPTION: ...]\"-Zeilen folgen.\n\n")

	b.WriteString("Beginne mit einer interessanten Eröffnungsszene, wenn der Spieler \"start\" sagt.")

	return b.String()
}

func writeStoryArc(b *strings.Builder, arcStep int) {
	step := arcStep
	if step < 1 {
		step = 1
	}
	if step > ArcTotalSteps {
		step = ArcTotalSteps
	}

	var phase, guidance string
	switch {
	case step <= 5:
		phase = "Einführung (Schritte 1-5)"
		guidance = "Stelle Ort, Atmosphäre und erste Konflikte vor. Baue Neugier und klare Ziele auf."
	case step <= 13:
		phase = "Hauptbogen (Schritte 6-13)"
		guidance = "Steigere Spannung, bringe Hindernisse und Enthüllungen, treibe die Handlung voran."
	default:
		phase = "Finale (Schritte 14-15)"
		guidance = "Führe zur Auflösung, schließe lose Enden und beende das Abenteuer."
	}

	b.WriteString("GESCHICHTENBOGEN:\n")
	fmt.Fprintf(b, "- Schritt: %d von %d\n", step, ArcTotalSteps)
	fmt.Fprintf(b, "- Phase: %s\n", phase)
	fmt.Fprintf(b, "- Fokus: %s\n", guidance)
	b.WriteString("- Bis Schritt 15 muss das Abenteuer abgeschlossen sein und [ABENTEUER ABGESCHLOSSEN] enthalten.\n\n")
}

// writeCompletedAdventures reminds the narrator of the most recent finished
// adventures so the story can call back to them.
func writeCompletedAdventures(b *strings.Builder, completed []adventure.Completed) {
	if len(completed) == 0 {
		return
	}

	b.WriteString("\nVERGANGENE ABENTEUER (der Spieler erinnert sich):\n")
	start := len(completed) - rememberedAdventures
	if start < 0 {
		start = 0
	}
	for i, adv := range completed[start:] {
		fmt.Fprintf(b, "%d. %q: %s\n", i+1, strings.TrimSpace(adv.Title), strings.TrimSpace(adv.Summary))
	}
	b.WriteString("\nDu kannst auf vergangene Abenteuer Bezug nehmen wenn es passt (z.B. \"Nach deinem Erlebnis mit dem Basilisken bist du vorsichtiger geworden...\").\n")
}
