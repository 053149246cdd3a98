package chatd

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// RiskLevel grades a detected issue.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

func (r RiskLevel) String() string {
	switch r {
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	case RiskCritical:
		return "critical"
	default:
		return "low"
	}
}

type injectionPattern struct {
	re   *regexp.Regexp
	name string
	risk RiskLevel
}

// Patterns run against lower-cased, NFKC-normalized input.
var injectionPatterns = []injectionPattern{
	{regexp.MustCompile(`ignore\s+.*(?:previous|all|your|above|prior|earlier)\s+(?:instructions?|prompts?|rules?)`), "instruction_override", RiskCritical},
	{regexp.MustCompile(`ignora\s+.*(?:todas?|las?|tus?|anteriores?)\s+(?:instrucciones?|normas?|reglas?)`), "instruction_override", RiskCritical},
	{regexp.MustCompile(`new\s+(?:instructions?|rules?|prompt)\s*[:=]`), "new_instructions", RiskCritical},
	{regexp.MustCompile(`nuevas?\s+(?:instrucciones?|reglas?)\s*[:=]`), "new_instructions", RiskCritical},
	{regexp.MustCompile(`(?:from\s+now\s+on|starting\s+now)\s+(?:you\s+are|act\s+as|pretend|be)`), "role_hijack", RiskCritical},
	{regexp.MustCompile(`(?:desde\s+ahora|a\s+partir\s+de\s+ahora)\s+(?:eres|act[uú]a\s+como|finge|s[eé])`), "role_hijack", RiskCritical},
	{regexp.MustCompile(`(?:show|reveal|display|print|output|tell|give)\s+(?:me\s+)?(?:your\s+)?(?:system\s+)?(?:prompt|instructions?|rules?)`), "prompt_extraction", RiskHigh},
	{regexp.MustCompile(`(?:muestra|revela|ense[ñn]a|imprime|dame)\s+(?:tu\s+)?(?:prompt|instrucciones?|reglas?)`), "prompt_extraction", RiskHigh},
	{regexp.MustCompile(`dan\s*mode`), "jailbreak", RiskCritical},
	{regexp.MustCompile(`jailbreak`), "jailbreak", RiskCritical},
	{regexp.MustCompile("```(?:python|javascript|bash|shell|exec|eval)"), "code_execution", RiskHigh},
	{regexp.MustCompile(`eval\s*\(`), "code_execution", RiskHigh},
	{regexp.MustCompile(`exec\s*\(`), "code_execution", RiskHigh},
	{regexp.MustCompile(`;\s*(?:drop|delete|update|insert|alter|truncate)\s+`), "sql_injection", RiskCritical},
	{regexp.MustCompile(`union\s+select`), "sql_injection", RiskCritical},
	{regexp.MustCompile(`'\s*or\s*'1'\s*=\s*'1`), "sql_injection", RiskCritical},
	{regexp.MustCompile(`\]\s*\}\s*\{`), "json_injection", RiskMedium},
	{regexp.MustCompile("```\\s*(?:system|assistant|user)"), "markdown_injection", RiskMedium},
	{regexp.MustCompile(`[\x{200b}-\x{200f}\x{2028}-\x{202e}\x{2060}-\x{206f}]`), "invisible_chars", RiskMedium},
}

type piiPattern struct {
	re   *regexp.Regexp
	name string
}

var piiPatterns = []piiPattern{
	{regexp.MustCompile(`(?i)\b\d{8}\s*-?\s*[A-Z]\b`), "dni"},
	{regexp.MustCompile(`(?i)\b[XYZ]\s*-?\s*\d{7}\s*-?\s*[A-Z]\b`), "nie"},
	{regexp.MustCompile(`\b(?:\+34|0034)?\s*[6789]\d{2}\s*\d{3}\s*\d{3}\b`), "phone"},
	{regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`), "email"},
	{regexp.MustCompile(`(?i)\b[A-Z]{2}\d{2}\s*\d{4}\s*\d{4}\s*\d{4}\s*\d{4}\s*\d{4}\b`), "iban"},
	{regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`), "credit_card"},
}

// SafetyReport is the result of screening a question.
type SafetyReport struct {
	Safe      bool
	RiskLevel RiskLevel
	Issues    []string
	Warnings  []string
}

// lengthIssue reports a trimmed length outside 1..maxLength, or "".
func lengthIssue(text string, maxLength int) string {
	length := utf8.RuneCountInString(strings.TrimSpace(text))
	switch {
	case length < 1:
		return "Input too short (minimum 1 characters)"
	case maxLength > 0 && length > maxLength:
		return fmt.Sprintf("Input too long (maximum %d characters)", maxLength)
	}
	return ""
}

// CheckInput screens text for length, prompt injection and PII.
// PII only produces warnings; injection at critical risk is never safe.
func CheckInput(text string, maxLength int) SafetyReport {
	var report SafetyReport
	if issue := lengthIssue(text, maxLength); issue != "" {
		report.Issues = append(report.Issues, issue)
	}

	normalized := norm.NFKC.String(strings.ToLower(text))
	var detected []string
	for _, p := range injectionPatterns {
		if p.re.MatchString(normalized) {
			detected = append(detected, p.name)
			if p.risk > report.RiskLevel {
				report.RiskLevel = p.risk
			}
		}
	}
	if len(detected) > 0 {
		report.Issues = append(report.Issues,
			"Potential prompt injection detected: "+strings.Join(detected, ", "))
	}

	var pii []string
	for _, p := range piiPatterns {
		if p.re.MatchString(text) {
			pii = append(pii, p.name)
		}
	}
	if len(pii) > 0 {
		report.Warnings = append(report.Warnings, "PII detected: "+strings.Join(pii, ", "))
	}

	report.Safe = len(report.Issues) == 0 && report.RiskLevel != RiskCritical
	return report
}
