// Package ignore parses ignore files and flags matching catalogue rows.
//
// Each non-blank, non-comment line is one rule:
//
//	Artist/Album/01 Track.flac    exact track (and its CUE entries)
//	Christmas/                    every track under a directory
//	SQL:Genre='Christmas'         raw predicate over the Tracks columns
//
// Raw predicates are trusted operator input applied verbatim inside a WHERE
// clause. Rules only ever set the ignore flag; nothing is cleared.
package ignore

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CDrummond/bliss-analyser/internal/catalog"
	"github.com/CDrummond/bliss-analyser/internal/logging"
	"github.com/CDrummond/bliss-analyser/internal/services"
	"github.com/CDrummond/bliss-analyser/internal/track"
)

// RawPrefix marks a raw predicate line.
const RawPrefix = "SQL:"

// Rule is one parsed ignore line. Implementations are ExactRule, PrefixRule
// and RawRule.
type Rule interface {
	Line() int
	String() string
	apply(ctx context.Context, target Target) (int64, error)
}

// ExactRule ignores one track path together with any CUE entries derived
// from it.
type ExactRule struct {
	LineNo int
	Path   string
}

func (r ExactRule) Line() int      { return r.LineNo }
func (r ExactRule) String() string { return r.Path }
func (r ExactRule) apply(ctx context.Context, target Target) (int64, error) {
	return target.IgnoreExact(ctx, r.Path)
}

// PrefixRule ignores every track whose path starts with Prefix.
type PrefixRule struct {
	LineNo int
	Prefix string
}

func (r PrefixRule) Line() int      { return r.LineNo }
func (r PrefixRule) String() string { return r.Prefix }
func (r PrefixRule) apply(ctx context.Context, target Target) (int64, error) {
	return target.IgnorePrefix(ctx, r.Prefix)
}

// RawRule ignores every row matching a trusted SQL predicate.
type RawRule struct {
	LineNo int
	Filter catalog.RawFilter
}

func (r RawRule) Line() int      { return r.LineNo }
func (r RawRule) String() string { return RawPrefix + r.Filter.String() }
func (r RawRule) apply(ctx context.Context, target Target) (int64, error) {
	return target.IgnoreWhere(ctx, r.Filter)
}

// Target is the catalogue surface rules are applied to.
type Target interface {
	IgnoreExact(ctx context.Context, id string) (int64, error)
	IgnorePrefix(ctx context.Context, prefix string) (int64, error)
	IgnoreWhere(ctx context.Context, filter catalog.RawFilter) (int64, error)
}

// LineError reports a malformed or failed line.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e LineError) Error() string {
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Err)
}

func (e LineError) Unwrap() error { return e.Err }

// ParseFile opens path and parses it with Parse.
func ParseFile(path string, roots []string) ([]Rule, []LineError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open ignore file: %w", err)
	}
	defer f.Close()
	return Parse(f, roots)
}

// Parse reads rules from r. Absolute paths beneath one of roots are made
// relative to it. Malformed lines are returned as LineErrors and skipped.
func Parse(r io.Reader, roots []string) ([]Rule, []LineError, error) {
	var (
		rules []Rule
		bad   []LineError
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimRight(scanner.Text(), "\r")
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rule, err := parseLine(lineNo, trimmed, roots)
		if err != nil {
			bad = append(bad, LineError{Line: lineNo, Text: trimmed, Err: err})
			continue
		}
		rules = append(rules, rule)
	}
	if err := scanner.Err(); err != nil {
		return rules, bad, fmt.Errorf("read ignore file: %w", err)
	}
	return rules, bad, nil
}

func parseLine(lineNo int, text string, roots []string) (Rule, error) {
	if expr, ok := strings.CutPrefix(text, RawPrefix); ok {
		filter, err := catalog.NewRawFilter(expr)
		if err != nil {
			return nil, err
		}
		return RawRule{LineNo: lineNo, Filter: filter}, nil
	}

	isPrefix := strings.HasSuffix(text, "/") || strings.HasSuffix(text, string(filepath.Separator))
	rel, err := relativize(text, roots)
	if err != nil {
		return nil, err
	}
	if isPrefix {
		if rel == "" {
			return nil, fmt.Errorf("%w: rule would ignore the whole library", services.ErrValidation)
		}
		return PrefixRule{LineNo: lineNo, Prefix: rel + "/"}, nil
	}
	if rel == "" {
		return nil, fmt.Errorf("%w: empty path", services.ErrValidation)
	}
	return ExactRule{LineNo: lineNo, Path: rel}, nil
}

func relativize(text string, roots []string) (string, error) {
	if filepath.IsAbs(text) {
		rel, ok := underRoot(filepath.Clean(text), roots)
		if !ok {
			return "", fmt.Errorf("%w: %s is outside every music root", services.ErrValidation, text)
		}
		text = rel
	}
	rel := track.CleanRel(filepath.ToSlash(text))
	for _, segment := range strings.Split(rel, "/") {
		if segment == ".." {
			return "", fmt.Errorf("%w: path escapes the music root", services.ErrValidation)
		}
	}
	return rel, nil
}

func underRoot(path string, roots []string) (string, bool) {
	for _, root := range roots {
		rel, err := filepath.Rel(filepath.Clean(root), path)
		if err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return rel, true
		}
	}
	return "", false
}

// RuleResult is the outcome of one applied rule.
type RuleResult struct {
	Rule    Rule
	Matched int64
}

// Result summarizes Apply.
type Result struct {
	Applied []RuleResult
	Errors  []LineError
}

// Matched returns the total number of rows flagged.
func (r Result) Matched() int64 {
	var n int64
	for _, applied := range r.Applied {
		n += applied.Matched
	}
	return n
}

// Apply runs every rule against target. A raw predicate the store rejects is
// reported for its line and the remaining rules still run; any other store
// error stops Apply.
func Apply(ctx context.Context, target Target, rules []Rule, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "ignore")

	var res Result
	for _, rule := range rules {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n, err := rule.apply(ctx, target)
		if err != nil {
			if _, raw := rule.(RawRule); raw {
				res.Errors = append(res.Errors, LineError{Line: rule.Line(), Text: rule.String(), Err: err})
				logger.Warn("ignore rule failed", logging.Int("line", rule.Line()), logging.Error(err))
				continue
			}
			return res, fmt.Errorf("apply ignore line %d: %w", rule.Line(), err)
		}
		logger.Info("ignore rule applied", logging.String("rule", rule.String()), logging.Int64("matched", n))
		res.Applied = append(res.Applied, RuleResult{Rule: rule, Matched: n})
	}
	return res, nil
}
