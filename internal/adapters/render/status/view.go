package status

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/bdlandchain/landchain-cli/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Snapshot is everything the dashboard shows at one instant.
type Snapshot struct {
	Network  domain.NetworkParams
	Wallet   domain.WalletSession
	Records  []domain.LandRecord
	LatestTx *domain.TxRecord
	// Transactions are the tracked entries still inside the display window, newest first.
	Transactions []domain.TxRecord
	Toasts       []domain.Toast
	Language     domain.Language
}

type RenderOptions struct {
	Now          time.Time
	PendingOnly  bool
	MaxRecords   int
	DisplayLimit time.Duration
	// Selected marks the record with this uid.
	Selected string
}

type labels struct {
	title        string
	network      string
	wallet       string
	disconnected string
	balance      string
	records      string
	noRecords    string
	verified     string
	unverified   string
	transaction  string
	transactions string
	pendingUID   string
	more         string
}

var labelsByLanguage = map[domain.Language]labels{
	domain.LanguageEnglish: {
		title:        "Land Registry",
		network:      "network",
		wallet:       "wallet",
		disconnected: "not connected",
		balance:      "balance",
		records:      "records",
		noRecords:    "No land records available.",
		verified:     "verified",
		unverified:   "unverified",
		transaction:  "latest tx",
		transactions: "transactions",
		pendingUID:   "awaiting uid",
		more:         "more",
	},
	domain.LanguageBangla: {
		title:        "ভূমি রেজিস্ট্রি",
		network:      "নেটওয়ার্ক",
		wallet:       "ওয়ালেট",
		disconnected: "সংযুক্ত নয়",
		balance:      "ব্যালেন্স",
		records:      "রেকর্ড",
		noRecords:    "কোনো জমির রেকর্ড নেই।",
		verified:     "যাচাইকৃত",
		unverified:   "অযাচাইকৃত",
		transaction:  "সর্বশেষ লেনদেন",
		transactions: "লেনদেন",
		pendingUID:   "ইউআইডি অপেক্ষমাণ",
		more:         "আরও",
	},
}

func labelsFor(lang domain.Language) labels {
	if l, ok := labelsByLanguage[lang]; ok {
		return l
	}
	return labelsByLanguage[domain.DefaultLanguage]
}

func renderView(snapshot Snapshot, opts RenderOptions, s styles) string {
	l := labelsFor(snapshot.Language)
	records := snapshot.Records
	if opts.PendingOnly {
		records = unverifiedOnly(records)
	}

	lines := []string{
		s.title.Render(l.title),
		s.header.Render(networkLine(snapshot.Network, l)),
		walletLine(snapshot.Wallet, snapshot.Network, l, s),
	}

	if tx := snapshot.LatestTx; tx != nil {
		lines = append(lines, txLine(*tx, opts, l, s))
	}

	lines = append(lines, s.section.Render(recordsHeader(snapshot.Records, l, s)))
	if len(records) == 0 {
		lines = append(lines, s.empty.Render(l.noRecords))
	} else {
		shown := records
		if opts.MaxRecords > 0 && len(shown) > opts.MaxRecords {
			shown = shown[:opts.MaxRecords]
		}
		for _, record := range shown {
			lines = append(lines, recordLine(record, record.UID != "" && record.UID == opts.Selected, l, s))
		}
		if hidden := len(records) - len(shown); hidden > 0 {
			lines = append(lines, s.empty.Render(fmt.Sprintf("… %d %s", hidden, l.more)))
		}
	}

	if len(snapshot.Transactions) > 0 {
		txLines := []string{s.title.Render(fmt.Sprintf("%s: %d", l.transactions, len(snapshot.Transactions)))}
		for _, tx := range snapshot.Transactions {
			txLines = append(txLines, txEntryLine(tx, opts, l, s))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, txLines...)))
	}

	if len(snapshot.Toasts) > 0 {
		toastLines := make([]string, 0, len(snapshot.Toasts))
		for _, toast := range snapshot.Toasts {
			toastLines = append(toastLines, toastLine(toast, s))
		}
		lines = append(lines, s.section.Render(lipgloss.JoinVertical(lipgloss.Left, toastLines...)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func networkLine(network domain.NetworkParams, l labels) string {
	if network.ChainID == 0 {
		return fmt.Sprintf("%s: unknown", l.network)
	}
	return fmt.Sprintf("%s: %s (%d)", l.network, network.Name, network.ChainID)
}

func walletLine(wallet domain.WalletSession, network domain.NetworkParams, l labels, s styles) string {
	if !wallet.Connected {
		return s.empty.Render(fmt.Sprintf("%s: %s", l.wallet, l.disconnected))
	}

	symbol := network.Currency.Symbol
	if symbol == "" {
		symbol = "ETH"
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.wallet.Render(fmt.Sprintf("%s: %s", l.wallet, wallet.Address.Hex())),
		" ",
		s.detail.Render(fmt.Sprintf("%s %s %s", l.balance, wallet.BalanceDisplay, symbol)),
	)
}

func recordsHeader(records []domain.LandRecord, l labels, s styles) string {
	verified := 0
	for _, record := range records {
		if record.Verified {
			verified++
		}
	}

	percent := 0.0
	if len(records) > 0 {
		percent = float64(verified) * 100 / float64(len(records))
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.title.Render(fmt.Sprintf("%s: %d", l.records, len(records))),
		" ",
		renderProgressBar(percent, 20, s),
		" ",
		s.meta.Render(fmt.Sprintf("%d %s", verified, l.verified)),
	)
}

func recordLine(record domain.LandRecord, selected bool, l labels, s styles) string {
	state := s.unverified.Render(l.unverified)
	if record.Verified {
		state = s.verified.Render(l.verified)
	}

	marker := "  "
	if selected {
		marker = s.selected.Render("› ")
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		marker,
		s.uid.Render(record.UID),
		"  ",
		s.detail.Render(record.BaseSurveyNumber()),
		"  ",
		s.meta.Render(fmt.Sprintf("%s, %s", record.District, record.Division)),
		"  ",
		s.detail.Render(formatArea(record.Area)),
		"  ",
		state,
		"  ",
		s.meta.Render(shortAddress(record.Owner.Hex())),
	)
}

func txLine(tx domain.TxRecord, opts RenderOptions, l labels, s styles) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, s.meta.Render(l.transaction+":"), " ", txEntryLine(tx, opts, l, s))
}

func txEntryLine(tx domain.TxRecord, opts RenderOptions, l labels, s styles) string {
	statusStyle := s.pending
	switch tx.Status {
	case domain.TxStatusConfirmed:
		statusStyle = s.confirmed
	case domain.TxStatusFailed:
		statusStyle = s.failed
	}

	uid := tx.LandUID
	if uid == domain.PendingLandUID {
		uid = l.pendingUID
	}

	parts := []string{
		statusStyle.Render(string(tx.Status)),
		" ",
		s.detail.Render(fmt.Sprintf("%s %s", tx.Kind, shortAddress(tx.Hash.Hex()))),
		" ",
		s.meta.Render(uid),
	}

	if !opts.Now.IsZero() && !tx.Timestamp.IsZero() {
		ageStyle := lipgloss.NewStyle().Foreground(ageColor(opts.Now.Sub(tx.Timestamp), opts.DisplayLimit))
		parts = append(parts, " ", ageStyle.Render(formatAge(tx.Timestamp, opts.Now)))
	}

	line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
	if tx.Status == domain.TxStatusFailed && tx.Reason != "" {
		line += " " + s.failed.Render(tx.Reason)
	}

	return line
}

func toastLine(toast domain.Toast, s styles) string {
	style := s.toastInfo
	switch toast.Kind {
	case domain.ToastSuccess:
		style = s.confirmed
	case domain.ToastError:
		style = s.failed
	case domain.ToastWarning:
		style = s.warning
	}

	text := toast.Title
	if body := strings.TrimSpace(toast.Body); body != "" {
		text += ": " + body
	}

	return style.Render(fmt.Sprintf("[%s] %s", toast.Kind, text))
}

func unverifiedOnly(records []domain.LandRecord) []domain.LandRecord {
	pending := make([]domain.LandRecord, 0, len(records))
	for _, record := range records {
		if !record.Verified {
			pending = append(pending, record)
		}
	}
	return pending
}

func formatArea(area domain.Area) string {
	return fmt.Sprintf("%s %s", strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", area.Value), "0"), "."), area.Unit)
}

func shortAddress(hex string) string {
	if len(hex) <= 12 {
		return hex
	}
	return hex[:6] + "…" + hex[len(hex)-4:]
}

func renderProgressBar(filledPercent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(filledPercent) / 100.0))
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatAge(at, now time.Time) string {
	elapsed := now.Sub(at)
	if elapsed < time.Second {
		return "just now"
	}
	if elapsed < time.Minute {
		return fmt.Sprintf("%ds ago", int(elapsed.Seconds()))
	}
	if elapsed < time.Hour {
		return fmt.Sprintf("%dm ago", int(elapsed.Minutes()))
	}
	return at.Format("15:04 on 02 Jan")
}

func interpolateColor(value, min, max float64) lipgloss.Color {
	if max == min {
		return lipgloss.Color("255")
	}

	normalized := (value - min) / (max - min)
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}

	// ANSI 256 greyscale ramp, 240 faded to 255 bright.
	interpolated := 240.0 + 15.0*normalized
	return lipgloss.Color(fmt.Sprintf("%d", int(interpolated)))
}

// ageColor fades a transaction from bright to grey as it approaches the end of its display window.
func ageColor(age, window time.Duration) lipgloss.Color {
	if window <= 0 {
		return lipgloss.Color("255")
	}
	return interpolateColor(window.Seconds()-age.Seconds(), 0, window.Seconds())
}
