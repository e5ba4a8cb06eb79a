package test

import (
	"bufio"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

// TestEngine_DelegateMethodComplexity keeps Engine methods in the root
// engine*.go files short. Methods over the limit likely carry business logic
// that belongs in internal/flows/*.
//
// Exceptions must name a reason, the flow file the logic should move to and
// a removal milestone.
func TestEngine_DelegateMethodComplexity(t *testing.T) {
	const maxLines = 50

	type delegateException struct {
		limit    int
		reason   string
		target   string
		removeBy string
	}

	exceptions := map[string]delegateException{
		"emitAudit": {60, "event assembly with lazy metadata", "internal/audit/audit.go", "v1.0.0"},
	}

	for name, exc := range exceptions {
		if exc.reason == "" {
			t.Errorf("exception %q missing reason", name)
		}
		if exc.target == "" {
			t.Errorf("exception %q missing target flow file", name)
		}
		if exc.removeBy == "" {
			t.Errorf("exception %q missing removeBy version/milestone", name)
		}
	}

	files, err := filepath.Glob("../engine*.go")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) == 0 {
		t.Fatalf("no engine files found")
	}

	funcSig := regexp.MustCompile(`^func \(e \*Engine\) ([A-Za-z]\w*)\(`)

	for _, filename := range files {
		if strings.HasSuffix(filename, "_test.go") {
			continue
		}
		checkDelegates(t, filename, funcSig, maxLines, func(name string) (int, bool) {
			exc, ok := exceptions[name]
			return exc.limit, ok
		})
	}
}

func checkDelegates(t *testing.T, filename string, funcSig *regexp.Regexp, maxLines int, exception func(string) (int, bool)) {
	t.Helper()

	f, err := os.Open(filename)
	if err != nil {
		t.Fatalf("open %s: %v", filename, err)
	}
	defer f.Close()

	type methodInfo struct {
		name  string
		start int
		depth int
	}

	scanner := bufio.NewScanner(f)
	lineNum := 0
	var current *methodInfo

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()

		if current == nil {
			if m := funcSig.FindStringSubmatch(line); m != nil {
				current = &methodInfo{
					name:  m[1],
					start: lineNum,
					depth: strings.Count(line, "{") - strings.Count(line, "}"),
				}
				if current.depth > 0 || strings.HasSuffix(line, "(") {
					continue
				}
				current = nil
			}
			continue
		}

		current.depth += strings.Count(line, "{") - strings.Count(line, "}")
		if current.depth <= 0 && strings.HasPrefix(line, "}") {
			length := lineNum - current.start + 1
			limit := maxLines
			if l, ok := exception(current.name); ok {
				limit = l
			}
			if length > limit {
				t.Errorf("%s:%d: method %s is %d lines (limit %d); move business logic to internal/flows/",
					filename, current.start, current.name, length, limit)
			}
			current = nil
		}
	}

	if err := scanner.Err(); err != nil {
		t.Fatalf("scan %s: %v", filename, err)
	}
}
