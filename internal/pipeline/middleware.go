package pipeline

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/isoscrape/internal/types"
)

// CASCheckMiddleware validates the check digit of both CAS columns. A bad
// number is logged and kept; the site is the source of truth.
type CASCheckMiddleware struct {
	logger *slog.Logger
}

func NewCASCheckMiddleware(logger *slog.Logger) *CASCheckMiddleware {
	return &CASCheckMiddleware{logger: logger.With("component", "cas_check")}
}

func (m *CASCheckMiddleware) Name() string { return "cas_check" }

func (m *CASCheckMiddleware) Process(p *types.Product) (*types.Product, error) {
	for _, col := range []string{types.ColCASLabeled, types.ColCASUnlabeled} {
		v := p.Get(col)
		if v == "" || ValidCAS(v) {
			continue
		}
		m.logger.Warn("CAS check digit mismatch", "url", p.URL, "field", col, "value", v)
	}
	return p, nil
}

var casRe = regexp.MustCompile(`^(\d{2,7})-(\d{2})-(\d)$`)

// ValidCAS reports whether s is a well-formed CAS registry number with a
// correct check digit.
func ValidCAS(s string) bool {
	m := casRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return false
	}
	body := m[1] + m[2]
	check := int(m[3][0] - '0')

	sum := 0
	for i := 0; i < len(body); i++ {
		d := int(body[len(body)-1-i] - '0')
		sum += (i + 1) * d
	}
	return sum%10 == check
}
