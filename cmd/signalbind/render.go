package main

import (
	"strconv"
	"strings"

	"github.com/brizzai/signalbind/internal/receipt"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(18)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#7D56F4")).
			Padding(0, 1)
)

// renderReceipt draws rec as a bordered table, omitting unset fields.
func renderReceipt(rec *receipt.ConsentReceipt) string {
	var rows []string
	add := func(label, value string) {
		if value == "" {
			return
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value))
	}

	add("Receipt", rec.ReceiptID)
	add("Phone number", rec.PhoneNumber)
	add("Verified", flag(rec.Verified, true))
	add("Recycled since", rec.RecycledSince)
	add("SIM swap date", rec.SimSwapDate)
	if rec.DaysSinceSwap != nil {
		add("Days since swap", strconv.Itoa(*rec.DaysSinceSwap))
	}
	add("SIM swap risk", flag(rec.SimSwapRisk, false))
	add("Reason", rec.ReasonCode)
	add("KYC match", flag(rec.KYCMatch, true))
	if rec.KYCConfidence != nil {
		add("KYC confidence", strconv.FormatFloat(*rec.KYCConfidence, 'f', 2, 64))
	}
	add("Issued", rec.Timestamp)

	body := titleStyle.Render("Consent receipt") + "\n" + strings.Join(rows, "\n")
	return boxStyle.Render(body)
}

// flag renders v in green when it equals good and in red otherwise.
func flag(v *bool, good bool) string {
	if v == nil {
		return ""
	}
	text := strconv.FormatBool(*v)
	if *v == good {
		return goodStyle.Render(text)
	}
	return badStyle.Render(text)
}
