package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sheehyct/Alpha-Arena-Reverse-Engineering/internal/domain"
)

// knownModel pairs a canonical model name with the pattern that recognizes it
// in rendered page text. The arena page renders names in display form
// ("CLAUDE SONNET 4.5"), hence the loose separators.
type knownModel struct {
	name    string
	pattern *regexp.Regexp
}

var knownModels = []knownModel{
	{"deepseek-chat-v3.1", regexp.MustCompile(`(?i)deepseek[\s_-]*(chat)?[\s_-]*v?3\.1`)},
	{"qwen3-max", regexp.MustCompile(`(?i)qwen\s*3[\s_-]*max`)},
	{"claude-sonnet-4.5", regexp.MustCompile(`(?i)claude[\s_-]*sonnet[\s_-]*4\.5`)},
	{"grok-4", regexp.MustCompile(`(?i)grok[\s_-]*4`)},
	{"gpt-5", regexp.MustCompile(`(?i)gpt[\s_-]*5`)},
	{"gemini-2.5-pro", regexp.MustCompile(`(?i)gemini[\s_-]*2\.5[\s_-]*pro`)},
}

var (
	modelLabelRe = regexp.MustCompile(`(?i)\bmodel[:\s]+([A-Za-z0-9._\-]{2,})`)
	actionWordRe = regexp.MustCompile(`(?i)\b(buy|sell|hold|close|long|short)\b`)
	confidenceRe = regexp.MustCompile(`(?i)\bconfidence[:\s=]*([0-9]*\.?[0-9]+)\s*%?`)

	// Position mentions: a LONG/SHORT keyword next to a ticker-like token,
	// in either order.
	sideThenTickerRe = regexp.MustCompile(`\b(LONG|SHORT)\b[\s:]*\$?([A-Z]{2,6})\b`)
	tickerThenSideRe = regexp.MustCompile(`\b([A-Z]{2,6})\b[\s:]*\$?\b(LONG|SHORT)\b`)

	accountValueRe = regexp.MustCompile(`(?i)current account value[:\s]*\$?([\d,.]+)`)
	totalReturnRe  = regexp.MustCompile(`(?i)current total return[^:]*[:\s]*([-+]?[\d.]+)\s*%`)
	sharpeRatioRe  = regexp.MustCompile(`(?i)sharpe ratio[:\s]*([-+]?[\d.]+)`)

	coinSectionRe = regexp.MustCompile(`ALL (BTC|ETH|SOL|BNB|XRP|DOGE) DATA`)
	coinMetricRes = map[string]*regexp.Regexp{
		"current_price": regexp.MustCompile(`current_price\s*=\s*([\d.]+)`),
		"current_macd":  regexp.MustCompile(`current_macd\s*=\s*([-\d.]+)`),
		"current_rsi":   regexp.MustCompile(`current_rsi\w*\s*=\s*([\d.]+)`),
	}
)

// nonTickers are uppercase tokens the position regexes must not mistake for
// symbols.
var nonTickers = map[string]bool{
	"LONG": true, "SHORT": true, "BUY": true, "SELL": true,
	"HOLD": true, "CLOSE": true, "USD": true, "USDT": true, "USDC": true,
	"DATA": true, "ALL": true, "THE": true, "AND": true,
}

// textPass recovers fields from the raw rendered snapshot. It always runs;
// its results only win where the structured pass found nothing.
func textPass(visibleText string) passResult {
	res := passResult{market: make(map[string]any)}
	if strings.TrimSpace(visibleText) == "" {
		return res
	}

	res.modelID = textModel(visibleText)

	if m := actionWordRe.FindStringSubmatch(visibleText); m != nil {
		canon := CanonicalizeAction(m[1])
		res.action = &canon
	}

	if m := confidenceRe.FindStringSubmatch(visibleText); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			if f > 1 {
				f /= 100 // rendered as a percentage
			}
			res.confidence = &f
		}
	}

	res.positions = textPositions(visibleText)
	textMarket(visibleText, res.market)

	if alphanumericLen(visibleText) > minSnapshotReasoningLen {
		res.reasoning = strings.TrimSpace(visibleText)
	}

	return res
}

// textModel tries the known-name allow-list first, then a generic label.
func textModel(text string) *string {
	for _, km := range knownModels {
		if km.pattern.MatchString(text) {
			name := km.name
			return &name
		}
	}
	if m := modelLabelRe.FindStringSubmatch(text); m != nil {
		name := strings.ToLower(m[1])
		return &name
	}
	return nil
}

// textPositions pairs LONG/SHORT keywords with nearby ticker-like tokens.
func textPositions(text string) []domain.Position {
	var positions []domain.Position

	for _, m := range sideThenTickerRe.FindAllStringSubmatch(text, -1) {
		if p := tickerPosition(m[2], m[1]); p != nil {
			positions = append(positions, *p)
		}
	}
	for _, m := range tickerThenSideRe.FindAllStringSubmatch(text, -1) {
		if p := tickerPosition(m[1], m[2]); p != nil {
			positions = append(positions, *p)
		}
	}

	return positions
}

func tickerPosition(ticker, side string) *domain.Position {
	if nonTickers[ticker] {
		return nil
	}
	symbol := ticker
	sideVal := domain.SideLong
	if side == "SHORT" {
		sideVal = domain.SideShort
	}
	return &domain.Position{Symbol: &symbol, Side: &sideVal}
}

// textMarket recovers account metrics and per-coin indicator values from the
// rendered prompt text.
func textMarket(text string, market map[string]any) {
	if m := accountValueRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			market["account_value"] = f
		}
	}
	if m := totalReturnRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			market["total_return"] = f
		}
	}
	if m := sharpeRatioRe.FindStringSubmatch(text); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			market["sharpe_ratio"] = f
		}
	}

	// Per-coin sections: everything between one "ALL XXX DATA" header and
	// the next belongs to that coin.
	headers := coinSectionRe.FindAllStringSubmatchIndex(text, -1)
	for i, h := range headers {
		coin := text[h[2]:h[3]]
		sectionEnd := len(text)
		if i+1 < len(headers) {
			sectionEnd = headers[i+1][0]
		}
		section := text[h[1]:sectionEnd]

		for metric, re := range coinMetricRes {
			m := re.FindStringSubmatch(section)
			if m == nil {
				continue
			}
			f, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			key := strings.ToLower(coin) + "_" + metric
			if _, seen := market[key]; !seen {
				market[key] = f
			}
		}
	}
}
