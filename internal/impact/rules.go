package impact

import "regexp"

// scanRule is one category-tagged pattern with a fixed severity or impact
// tier attached.
type scanRule struct {
	Category    string
	Pattern     *regexp.Regexp
	Severity    Severity
	Description string
}

// scanRules holds the static pattern tables for the three independent
// scans. Built once, never mutated.
type scanRules struct {
	Breaking    []scanRule
	BreakingMsg []string // commit-message keywords flagging explicit breaks
	Security    []scanRule
	Secrets     []scanRule
	Performance []scanRule
}

func defaultScanRules() *scanRules {
	return &scanRules{
		Breaking: []scanRule{
			{
				Category:    "api",
				Pattern:     regexp.MustCompile(`(?m)^[-\s]*(export\s+(default\s+)?(function|class|const)|func\s+[A-Z]\w*|pub\s+fn)\b`),
				Severity:    SeverityHigh,
				Description: "public API surface modified",
			},
			{
				Category:    "api",
				Pattern:     regexp.MustCompile(`(?i)@deprecated|DeprecationWarning|\bdeprecated\b`),
				Severity:    SeverityMedium,
				Description: "deprecation marker present",
			},
			{
				Category:    "database",
				Pattern:     regexp.MustCompile(`(?i)\b(ALTER\s+TABLE|DROP\s+(TABLE|COLUMN)|CREATE\s+TABLE|ADD\s+COLUMN|RENAME\s+(TABLE|COLUMN))\b`),
				Severity:    SeverityCritical,
				Description: "schema change detected",
			},
			{
				Category:    "database",
				Pattern:     regexp.MustCompile(`(?i)(^|/)migrations?/`),
				Severity:    SeverityHigh,
				Description: "migration file touched",
			},
			{
				Category:    "config",
				Pattern:     regexp.MustCompile(`(?i)process\.env\.\w+|os\.Getenv\(|ENV\[`),
				Severity:    SeverityMedium,
				Description: "environment configuration referenced",
			},
			{
				Category:    "dependencies",
				Pattern:     regexp.MustCompile(`(?m)^[+\-]?\s*"[^"]+"\s*:\s*"[~^]?\d+\.\d+`),
				Severity:    SeverityMedium,
				Description: "dependency version pinned or changed",
			},
		},
		BreakingMsg: []string{"breaking", "major", "incompatible"},
		Security: []scanRule{
			{
				Category:    "injection",
				Pattern:     regexp.MustCompile(`(?i)(eval\(|exec\(|query\(\s*['"].*\+|innerHTML\s*=|dangerouslySetInnerHTML)`),
				Severity:    SeverityHigh,
				Description: "possible injection vector",
			},
			{
				Category:    "authentication",
				Pattern:     regexp.MustCompile(`(?i)(authenticate|authorize|session|jwt|oauth|bcrypt|verify.?token)`),
				Severity:    SeverityMedium,
				Description: "authentication logic touched",
			},
			{
				Category:    "cryptography",
				Pattern:     regexp.MustCompile(`(?i)(md5|sha1\b|\bdes\b|ecb\b|math\.random|crypto\.createcipher\b)`),
				Severity:    SeverityHigh,
				Description: "weak or suspicious cryptography",
			},
			{
				Category:    "data-exposure",
				Pattern:     regexp.MustCompile(`(?i)(console\.log\(.*\b(password|token|secret|key)\b|printstacktrace|debug\s*=\s*true)`),
				Severity:    SeverityMedium,
				Description: "possible sensitive-data exposure",
			},
		},
		Secrets: []scanRule{
			{
				Category:    "hardcoded-secret",
				Pattern:     regexp.MustCompile(`(?i)(password|passwd)\s*[:=]\s*["'][^"']{6,}["']`),
				Severity:    SeverityCritical,
				Description: "hardcoded password",
			},
			{
				Category:    "hardcoded-secret",
				Pattern:     regexp.MustCompile(`(?i)(api[_-]?key|secret[_-]?key|access[_-]?token)\s*[:=]\s*["'][^"']{12,}["']`),
				Severity:    SeverityCritical,
				Description: "hardcoded API credential",
			},
			{
				Category:    "hardcoded-secret",
				Pattern:     regexp.MustCompile(`-----BEGIN\s+(RSA\s+|EC\s+)?PRIVATE\s+KEY-----`),
				Severity:    SeverityCritical,
				Description: "embedded private key",
			},
		},
		Performance: []scanRule{
			{
				Category:    "loops",
				Pattern:     regexp.MustCompile(`(?m)for\s*\(.*\)\s*\{[^}]*for\s*\(`),
				Severity:    SeverityHigh,
				Description: "nested loop",
			},
			{
				Category:    "loops",
				Pattern:     regexp.MustCompile(`\.(forEach|map|filter|reduce)\(`),
				Severity:    SeverityLow,
				Description: "iteration construct",
			},
			{
				Category:    "database-queries",
				Pattern:     regexp.MustCompile(`(?i)(SELECT\s+\*|\.find\(\s*\)|\.findAll\(|N\+1)`),
				Severity:    SeverityHigh,
				Description: "potentially unbounded query",
			},
			{
				Category:    "memory",
				Pattern:     regexp.MustCompile(`(?i)(new\s+Array\(\d{4,}\)|Buffer\.alloc|make\(\[\]byte,\s*\d{6,}|readFileSync)`),
				Severity:    SeverityMedium,
				Description: "large allocation or whole-file read",
			},
			{
				Category:    "async",
				Pattern:     regexp.MustCompile(`(?i)(await.*await|Promise\.all|sync\.WaitGroup|go\s+func\()`),
				Severity:    SeverityLow,
				Description: "async/concurrent construct",
			},
		},
	}
}
