package reporter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudhut/kafka-lag-reporter/lag"
)

type topicFilter struct {
	allowed []*regexp.Regexp
	ignored []*regexp.Regexp
}

func newTopicFilter(cfg Config) (*topicFilter, error) {
	allowed, err := compileRegexes(cfg.AllowedTopics)
	if err != nil {
		return nil, err
	}
	ignored, err := compileRegexes(cfg.IgnoredTopics)
	if err != nil {
		return nil, err
	}

	return &topicFilter{allowed: allowed, ignored: ignored}, nil
}

func (f *topicFilter) IsTopicAllowed(topicName string) bool {
	isAllowed := false
	for _, regex := range f.allowed {
		if regex.MatchString(topicName) {
			isAllowed = true
			break
		}
	}

	for _, regex := range f.ignored {
		if regex.MatchString(topicName) {
			isAllowed = false
			break
		}
	}
	return isAllowed
}

// Apply returns the records of allowed topics, keeping their order
func (f *topicFilter) Apply(records []lag.Record) []lag.Record {
	filtered := make([]lag.Record, 0, len(records))
	for _, record := range records {
		if f.IsTopicAllowed(record.Topic) {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// compileRegex treats expressions surrounded by slashes as regex, anything else must match literally
func compileRegex(expr string) (*regexp.Regexp, error) {
	if len(expr) >= 2 && strings.HasPrefix(expr, "/") && strings.HasSuffix(expr, "/") {
		substr := expr[1 : len(expr)-1]
		regex, err := regexp.Compile(substr)
		if err != nil {
			return nil, err
		}

		return regex, nil
	}

	return regexp.Compile("^" + regexp.QuoteMeta(expr) + "$")
}

func compileRegexes(expr []string) ([]*regexp.Regexp, error) {
	compiledExpressions := make([]*regexp.Regexp, len(expr))
	for i, exprStr := range expr {
		expr, err := compileRegex(exprStr)
		if err != nil {
			return nil, fmt.Errorf("failed to compile expression string '%v': %w", exprStr, err)
		}
		compiledExpressions[i] = expr
	}

	return compiledExpressions, nil
}
