package ingestion

import (
	"strings"
	"time"

	"github.com/ctpnav/reconciler/internal/domain"
)

type header struct {
	accountID   string
	accountName string
	broker      string
	date        time.Time
}

func extractHeader(lines []string, l Layout) (header, error) {
	var h header
	id, ok := labeledToken(lines, l.ClientIDLabels)
	if !ok || id == "" {
		return h, &domain.MissingFieldError{Section: HeaderMarker, Field: "client_id"}
	}
	h.accountID = id

	raw, ok := labeledToken(lines, l.DateLabels)
	if !ok || raw == "" {
		return h, &domain.MissingFieldError{Section: HeaderMarker, Field: "date"}
	}
	date, err := domain.ParseDate(raw)
	if err != nil {
		return h, err
	}
	h.date = date

	if name, ok := labeledText(lines, l.ClientNameLabels); ok {
		h.accountName = name
	}
	h.broker = detectBroker(lines, l.Brokers)
	return h, nil
}

// detectBroker checks the first non-blank line for a known broker name.
func detectBroker(lines []string, brokers []string) string {
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, b := range brokers {
			if strings.Contains(line, b) {
				return b
			}
		}
		return ""
	}
	return ""
}
