package promptguard

import (
	"regexp"

	"github.com/coach-gateway/pkg/models"
)

// pattern is one fixed-severity catalog entry. Patterns match the
// canonical form of the input, so they only need plain-ASCII shapes.
type pattern struct {
	name     string
	category models.ThreatCategory
	severity models.Severity
	re       *regexp.Regexp
}

// catalog is the ordered detection catalog. Order is stable so repeated
// scans of the same input produce threats in the same order.
var catalog = []pattern{
	// Goal hijacking: attempts to replace the agent's standing objective.
	{
		name:     "ignore_previous_instructions",
		category: models.CategoryGoalHijacking,
		severity: models.SeverityCritical,
		re:       regexp.MustCompile(`(?i)ignore\s+(?:all\s+)?(?:previous|prior|above|earlier)\s+(?:instructions|prompts|directives)`),
	},
	{
		name:     "disregard_instructions",
		category: models.CategoryGoalHijacking,
		severity: models.SeverityCritical,
		re:       regexp.MustCompile(`(?i)disregard\s+(?:all\s+)?(?:previous|prior|above|your)\s+(?:instructions|rules|guidelines)`),
	},
	{
		name:     "forget_instructions",
		category: models.CategoryGoalHijacking,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)forget\s+(?:everything|all)(?:\s+(?:previous|prior|above))?\s+(?:instructions|rules|you\s+(?:know|were\s+told))`),
	},
	{
		name:     "instructions_override",
		category: models.CategoryGoalHijacking,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)(?:new|real|actual|following)\s+instructions\s+(?:supersede|override|replace)`),
	},

	// Instruction injection: smuggling a new system role or persona.
	{
		name:     "system_role_marker",
		category: models.CategoryInstructionInjection,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)(?:\[system\]|<<sys>>|<\|im_start\|>\s*system)`),
	},
	{
		name:     "mode_switch",
		category: models.CategoryInstructionInjection,
		severity: models.SeverityMedium,
		re:       regexp.MustCompile(`(?i)you\s+are\s+now\s+(?:a|an|in|the)\s+\w+`),
	},
	{
		name:     "pretend_no_rules",
		category: models.CategoryInstructionInjection,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)pretend\s+(?:that\s+)?(?:you|there)\s+(?:have|are)\s+no\s+(?:rules|restrictions|guidelines|filters)`),
	},
	{
		name:     "act_unrestricted",
		category: models.CategoryInstructionInjection,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)act\s+as\s+(?:an?\s+)?(?:unrestricted|unfiltered|uncensored)`),
	},
	{
		name:     "override_system",
		category: models.CategoryInstructionInjection,
		severity: models.SeverityCritical,
		re:       regexp.MustCompile(`(?i)override\s+(?:the\s+)?(?:system\s+prompt|safety\s+(?:rules|settings)|your\s+programming)`),
	},

	// Jailbreaking: known persona/bypass framings.
	{
		name:     "do_anything_now",
		category: models.CategoryJailbreaking,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)\bdo\s+anything\s+now\b|\bDAN\s+mode\b`),
	},
	{
		name:     "jailbreak",
		category: models.CategoryJailbreaking,
		severity: models.SeverityMedium,
		re:       regexp.MustCompile(`(?i)\bjail\s*break(?:ing|s|er)?\b`),
	},
	{
		name:     "developer_mode",
		category: models.CategoryJailbreaking,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)\bdeveloper\s+mode\b`),
	},
	{
		name:     "no_restrictions",
		category: models.CategoryJailbreaking,
		severity: models.SeverityMedium,
		re:       regexp.MustCompile(`(?i)(?:without|free\s+of|no\s+longer\s+bound\s+by)\s+(?:any\s+)?(?:restrictions|limitations|filters|censorship|safety\s+rules)`),
	},
	{
		name:     "bypass_safety",
		category: models.CategoryJailbreaking,
		severity: models.SeverityCritical,
		re:       regexp.MustCompile(`(?i)bypass\s+(?:your\s+|the\s+)?(?:safety|content|security)\s+(?:guidelines|filters|measures|controls|policies)`),
	},
	{
		name:     "evil_persona",
		category: models.CategoryJailbreaking,
		severity: models.SeverityMedium,
		re:       regexp.MustCompile(`(?i)\bevil\s+(?:ai|assistant|twin|mode)\b`),
	},

	// Data exfiltration: pulling governing instructions or secrets out.
	{
		name:     "reveal_system_prompt",
		category: models.CategoryDataExfiltration,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)(?:reveal|show|print|display|output|repeat|tell\s+me)\s+(?:me\s+)?(?:your|the)\s+(?:system\s+prompt|initial\s+instructions|hidden\s+(?:instructions|prompt))`),
	},
	{
		name:     "repeat_above",
		category: models.CategoryDataExfiltration,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)repeat\s+(?:everything|all\s+(?:the\s+)?text)\s+above`),
	},
	{
		name:     "send_to_url",
		category: models.CategoryDataExfiltration,
		severity: models.SeverityCritical,
		re:       regexp.MustCompile(`(?i)(?:send|post|upload|forward)\s+(?:it|this|that|the\s+(?:data|conversation|output|results?))\s+to\s+https?://`),
	},
	{
		name:     "dump_secrets",
		category: models.CategoryDataExfiltration,
		severity: models.SeverityHigh,
		re:       regexp.MustCompile(`(?i)(?:print|show|echo|dump|list)\s+(?:all\s+|the\s+)?(?:env(?:ironment)?\s+variables?|api\s+keys?|credentials|secrets)`),
	},

	// Encoding evasion: explicit requests to move the conversation into
	// an encoded channel. Hidden encoded payloads are handled separately
	// by the base64 unwrapping pass.
	{
		name:     "decode_base64_request",
		category: models.CategoryEncodingEvasion,
		severity: models.SeverityMedium,
		re:       regexp.MustCompile(`(?i)(?:decode|execute|run|follow)\s+(?:this|the\s+following)\s+base64`),
	},
	{
		name:     "respond_in_base64",
		category: models.CategoryEncodingEvasion,
		severity: models.SeverityMedium,
		re:       regexp.MustCompile(`(?i)respond\s+(?:only\s+)?(?:in|using)\s+(?:base64|hex|rot13)`),
	},
}

// catalogByName resolves a catalog pattern for sanitization.
var catalogByName = func() map[string]*pattern {
	m := make(map[string]*pattern, len(catalog))
	for i := range catalog {
		m[catalog[i].name] = &catalog[i]
	}
	return m
}()
