package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"dormtycoon/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printError(msg string) {
	danger.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func promptLine(prompt string) (string, error) {
	accent.Print(prompt)
	text, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	normalized := make(map[string]struct{}, len(options))
	for _, opt := range options {
		normalized[strings.ToLower(strings.TrimSpace(opt))] = struct{}{}
	}
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = strings.ToLower(strings.TrimSpace(defaultValue))
		}
		if _, ok := normalized[text]; ok {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func printLog(entry game.LogEntry) {
	line := fmt.Sprintf("[day %d] %s", entry.Day, entry.Message)
	switch entry.Severity {
	case game.SeveritySuccess:
		printSuccess(line)
	case game.SeverityWarning:
		printWarn(line)
	case game.SeverityError:
		printError(line)
	default:
		printInfo(line)
	}
}

// renderLogsSince prints feed entries newer than seq and returns the latest
// sequence number.
func renderLogsSince(snap game.Snapshot, seq int) int {
	for _, entry := range snap.Logs {
		if entry.Seq > seq {
			printLog(entry)
			seq = entry.Seq
		}
	}
	return seq
}

func renderSnapshot(snap game.Snapshot) {
	l := snap.Ledger
	accent.Printf("\n== DAY %d / %d ==\n", min(l.Day, snap.Rules.TotalDays), snap.Rules.TotalDays)
	fmt.Printf("Cash:          %s\n", formatMoney(l.Cash))
	fmt.Printf("Total assets:  %s (target %s)\n", formatMoney(snap.TotalAssets), formatMoney(snap.Rules.TargetAssets))
	fmt.Printf("Energy:        %s\n", colorizeEnergy(l.Energy, l.EnergyCap()))
	fmt.Printf("Skill:         %d (holding cap %d per instrument)\n", l.Skill, snap.HoldingCap)
	fmt.Printf("Action points: %d / %d\n", l.ActionPoints, l.MaxActionPoints)
	if l.StudyCostMultiplier > 1 {
		warn.Printf("Study costs x%g energy today.\n", l.StudyCostMultiplier)
	}
	if l.TradingLocked {
		danger.Println("Trading is locked until the computer is repaired.")
	}
	renderStory(l.Story)
	if strings.TrimSpace(snap.Headline) != "" {
		fmt.Printf("Headline:      %s\n", snap.Headline)
	}

	fmt.Println()
	accent.Println("Market")
	fmt.Printf("%-3s %-22s %-15s %10s %9s %6s %6s %-8s\n", "ID", "NAME", "SECTOR", "PRICE", "CHANGE", "HELD", "STREAK", "TREND")
	for _, inst := range snap.Instruments {
		sector := string(inst.Category)
		if inst.FundType != game.FundNone {
			sector = "fund/" + string(inst.FundType)
		}
		streak := strconv.Itoa(inst.ConsecutiveUpDays)
		if inst.ConsecutiveUpDays >= 4 {
			streak = danger.Sprint(streak)
		}
		fmt.Printf("%-3d %-22s %-15s %10s %9s %6d %6s %-8s\n",
			inst.ID,
			truncate(inst.Name, 22),
			truncate(sector, 15),
			formatMoney(inst.Price),
			colorizePercent(inst.ChangePercent()*100),
			inst.Held,
			streak,
			sparkline(inst.History),
		)
	}
	if len(snap.Forecast) > 0 {
		fmt.Println()
		accent.Println("Forecast")
		for _, line := range snap.Forecast {
			printInfo("  " + line)
		}
	}
	if snap.Pending != nil {
		renderDilemma(*snap.Pending)
	}
	if snap.Over {
		renderOutcome(snap)
	}
	fmt.Println()
}

func renderStory(flags game.StoryFlags) {
	var parts []string
	if flags.GoodwillDays > 0 {
		parts = append(parts, fmt.Sprintf("goodwill %dd", flags.GoodwillDays))
	}
	if flags.AbsenceDays > 0 {
		parts = append(parts, fmt.Sprintf("roommate away %dd", flags.AbsenceDays))
	}
	if flags.Whistleblower {
		parts = append(parts, "whistleblower")
	}
	if flags.Easygoing {
		parts = append(parts, "pushover")
	}
	if flags.BadReputation {
		parts = append(parts, "bad reputation")
	}
	if len(parts) > 0 {
		fmt.Printf("Story:         %s\n", strings.Join(parts, ", "))
	}
}

func renderDilemma(d game.DilemmaView) {
	fmt.Println()
	warn.Println(d.Title)
	printInfo(d.Description)
	for _, opt := range d.Options {
		fmt.Printf("  %s) %s\n", opt.ID, opt.Text)
	}
}

func renderReport(r *game.DayReport) {
	if r == nil {
		return
	}
	for _, c := range r.Crashes {
		danger.Printf("Crash: %s -%.0f%% to %s\n", c.Name, c.Percent*100, formatMoney(c.Price))
	}
	for _, d := range r.Dividends {
		success.Printf("Dividend: %s %s\n", d.Name, formatMoney(d.Amount))
	}
}

func renderOutcome(snap game.Snapshot) {
	fmt.Println()
	switch snap.Outcome {
	case game.OutcomeWin:
		success.Printf("== YOU WIN == final assets %s\n", formatMoney(snap.TotalAssets))
	case game.OutcomeNeutral:
		warn.Printf("== TIME IS UP == final assets %s\n", formatMoney(snap.TotalAssets))
	default:
		danger.Printf("== GAME OVER (%s) ==\n", snap.Outcome)
	}
}

func printHelp() {
	accent.Println("Commands")
	fmt.Println("  work | w               part-time job (1 AP, 30 energy)")
	fmt.Println("  study | s              study (1 AP, 40 energy, +2 skill)")
	fmt.Println("  research | r           market research (1 AP, 20 energy)")
	fmt.Println("  rest                   recover 50 energy")
	fmt.Println("  buy <id> <qty>         buy units of an instrument")
	fmt.Println("  sell <id> <qty>        sell units of an instrument")
	fmt.Println("  repair                 fix a broken computer for ¥150")
	fmt.Println("  end | e                end the day")
	fmt.Println("  d <option>             answer a pending dilemma")
	fmt.Println("  show | help | quit")
}

func colorizePercent(v float64) string {
	text := fmt.Sprintf("%+.2f%%", v)
	switch {
	case v > 0:
		return success.Sprint(text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func colorizeEnergy(v, limit int) string {
	text := fmt.Sprintf("%d / %d", v, limit)
	switch {
	case v <= 20:
		return danger.Sprint(text)
	case v <= 50:
		return warn.Sprint(text)
	default:
		return success.Sprint(text)
	}
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

func sparkline(history []float64) string {
	if len(history) == 0 {
		return ""
	}
	lo, hi := history[0], history[0]
	for _, v := range history {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	out := make([]rune, 0, len(history))
	for _, v := range history {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		out = append(out, sparkTicks[idx])
	}
	return string(out)
}

func formatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(v*100 + 0.5)
	return fmt.Sprintf("%s¥%s.%02d", sign, comma(cents/100), cents%100)
}

func comma(v int64) string {
	s := strconv.FormatInt(v, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
		if len(s) > pre {
			b.WriteByte(',')
		}
	}
	for i := pre; i < len(s); i += 3 {
		b.WriteString(s[i : i+3])
		if i+3 < len(s) {
			b.WriteByte(',')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
