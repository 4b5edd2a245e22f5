// Copyright (C) 2026 Clarus Health (engineering@clarushealth.io)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides rich terminal output styling for the Clarus CLI.
package ux

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Clarus color palette - clear skies and clinical whites
var (
	// Primary palette (brightest to darkest)
	ColorSkyBright  = lipgloss.Color("#56CCF2") // Bright sky - highlights
	ColorSkyPrimary = lipgloss.Color("#2D9CDB") // Primary sky - main brand color
	ColorSkyVibrant = lipgloss.Color("#2B87C8") // Vibrant sky - interactive elements
	ColorSkyMedium  = lipgloss.Color("#2A76AF") // Medium sky - secondary elements
	ColorSkyDeep    = lipgloss.Color("#1F5E94") // Deep sky - borders, accents
	ColorSkyHarbor  = lipgloss.Color("#1A4C7C") // Harbor - subtle accents

	// Dark palette (for backgrounds, muted elements)
	ColorInk      = lipgloss.Color("#102A43") // Ink - deep backgrounds
	ColorInkDeep  = lipgloss.Color("#0B1F33") // Deep ink - darker backgrounds
	ColorMidnight = lipgloss.Color("#081521") // Midnight - near black
	ColorSlate    = lipgloss.Color("#334E68") // Slate - muted text, borders
	ColorDarkest  = lipgloss.Color("#0D1521") // Darkest - near black

	// Semantic colors (keeping standard conventions for clarity)
	ColorSuccess = lipgloss.Color("#27AE60") // Green for success
	ColorWarning = lipgloss.Color("#F4D03F") // Gold/amber for warnings
	ColorError   = lipgloss.Color("#E74C3C") // Red for errors
	ColorMuted   = lipgloss.Color("#334E68") // Slate for muted text

	// Risk tier colors - fixed mapping shared by badges and reports
	ColorRiskLow      = lipgloss.Color("#27AE60") // Green
	ColorRiskModerate = lipgloss.Color("#F4D03F") // Amber
	ColorRiskHigh     = lipgloss.Color("#E67E22") // Orange
	ColorRiskVeryHigh = lipgloss.Color("#C0392B") // Deep red
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	// Text styles
	Title     lipgloss.Style
	Subtitle  lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style

	// Box styles
	Box        lipgloss.Style
	InfoBox    lipgloss.Style
	WarningBox lipgloss.Style
	ErrorBox   lipgloss.Style

	// Status indicators
	StatusOK      lipgloss.Style
	StatusWarning lipgloss.Style
	StatusError   lipgloss.Style
	StatusPending lipgloss.Style

	// Risk tier badges
	RiskLow      lipgloss.Style
	RiskModerate lipgloss.Style
	RiskHigh     lipgloss.Style
	RiskVeryHigh lipgloss.Style
}{
	// Text styles
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorSkyBright),
	Subtitle:  lipgloss.NewStyle().Foreground(ColorSkyPrimary),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSuccess),
	Warning:   lipgloss.NewStyle().Foreground(ColorWarning),
	Error:     lipgloss.NewStyle().Foreground(ColorError),
	Highlight: lipgloss.NewStyle().Foreground(ColorSkyBright).Bold(true),

	// Box styles
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSkyDeep).
		Padding(0, 1),
	InfoBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSkyPrimary).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorWarning).
		Padding(0, 1),
	ErrorBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorError).
		Padding(0, 1),

	// Status indicators
	StatusOK:      lipgloss.NewStyle().SetString("✓").Foreground(ColorSuccess),
	StatusWarning: lipgloss.NewStyle().SetString("⚠").Foreground(ColorWarning),
	StatusError:   lipgloss.NewStyle().SetString("✗").Foreground(ColorError),
	StatusPending: lipgloss.NewStyle().SetString("○").Foreground(ColorSlate),

	// Risk tier badges
	RiskLow:      lipgloss.NewStyle().Bold(true).Foreground(ColorRiskLow),
	RiskModerate: lipgloss.NewStyle().Bold(true).Foreground(ColorRiskModerate),
	RiskHigh:     lipgloss.NewStyle().Bold(true).Foreground(ColorRiskHigh),
	RiskVeryHigh: lipgloss.NewStyle().Bold(true).Foreground(ColorRiskVeryHigh),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconPending Icon = "○"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconHeart   Icon = "♥"
	IconInfo    Icon = "ℹ"
	IconTime    Icon = "⏱"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	case IconPending:
		return Styles.Muted.Render(string(i))
	default:
		return string(i)
	}
}

// Print helpers that respect personality level

// Title prints a styled title
func Title(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Println(Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func Success(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stdout, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconSuccess.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func Warning(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stderr, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconWarning.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func Error(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(os.Stderr, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", IconError.Render(), text)
	default:
		fmt.Printf("%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func Info(text string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Println(text)
	default:
		fmt.Printf("%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints muted/secondary text
func Muted(text string) {
	if GetPersonality().Level == PersonalityMachine {
		return
	}
	fmt.Println(Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func Box(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Printf("%s: %s\n", title, content)
		return
	}
	boxStyle := Styles.Box.Width(60)
	titleLine := Styles.Title.Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// WarningBox prints text in a warning-styled box
func WarningBox(title, content string) {
	if GetPersonality().Level == PersonalityMachine {
		fmt.Fprintf(os.Stderr, "WARN %s: %s\n", title, content)
		return
	}
	boxStyle := Styles.WarningBox.Width(60)
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Println(boxStyle.Render(titleLine + "\n" + content))
}

// RiskBadge renders a risk tier as a colored, uppercased badge.
//
// The mapping mirrors the stratification tiers: low is green, moderate
// amber, high orange, very_high deep red. Unknown tiers render in the
// error style so a typo is visible instead of silently green.
func RiskBadge(level string) string {
	label := strings.ToUpper(strings.ReplaceAll(level, "_", " "))
	if GetPersonality().Level == PersonalityMachine {
		return label
	}
	switch strings.ToLower(level) {
	case "low":
		return Styles.RiskLow.Render(label)
	case "moderate":
		return Styles.RiskModerate.Render(label)
	case "high":
		return Styles.RiskHigh.Render(label)
	case "very_high", "very high":
		return Styles.RiskVeryHigh.Render(label)
	default:
		return Styles.Error.Render(label)
	}
}

// RecordStatus prints a patient reference with its processing status
func RecordStatus(externalID string, status Icon, reason string) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Printf("%s\t%s\t%s\n", status, externalID, reason)
	case PersonalityMinimal:
		fmt.Printf("%s %s\n", status.Render(), externalID)
	default:
		if reason != "" {
			fmt.Printf("%s %s %s\n", status.Render(), externalID, Styles.Muted.Render("("+reason+")"))
		} else {
			fmt.Printf("%s %s\n", status.Render(), externalID)
		}
	}
}

// Summary prints a batch summary line with counts
func Summary(assessed, rejected, total int) {
	p := GetPersonality()
	switch p.Level {
	case PersonalityMachine:
		fmt.Printf("SUMMARY: assessed=%d rejected=%d total=%d\n", assessed, rejected, total)
	default:
		fmt.Printf("\n%s %s  %s %s  %s %s\n",
			Styles.Success.Render(fmt.Sprintf("%d", assessed)), Styles.Muted.Render("assessed"),
			Styles.Warning.Render(fmt.Sprintf("%d", rejected)), Styles.Muted.Render("rejected"),
			Styles.Bold.Render(fmt.Sprintf("%d", total)), Styles.Muted.Render("total"),
		)
	}
}

// ProgressBar renders a simple progress bar
func ProgressBar(current, total int, width int) string {
	if GetPersonality().Level == PersonalityMachine {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	empty := width - filled

	bar := Styles.Success.Render(repeatChar('█', filled)) +
		Styles.Muted.Render(repeatChar('░', empty))

	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}

func repeatChar(c rune, n int) string {
	if n <= 0 {
		return ""
	}
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}
