package urlcheck

import (
	"regexp"
	"strings"
)

// soft404Patterns match error pages that return HTTP 200. Parked-domain and
// under-construction pages count too: they are live HTTP endpoints but dead
// websites.
var soft404Patterns = []string{
	// English
	`\b404\b`,
	`not\s+found`,
	`page\s+not\s+found`,
	`error\s+page`,
	`does\s+not\s+exist`,
	`no\s+longer\s+available`,
	`page\s+missing`,
	`page\s+unavailable`,
	`content\s+not\s+found`,
	`resource\s+not\s+found`,
	// Spanish
	`p[aá]gina\s+no\s+encontrada`,
	`no\s+existe`,
	`error\s+404`,
	`no\s+disponible`,
	// German
	`seite\s+nicht\s+gefunden`,
	`fehler\s+404`,
	// French
	`page\s+introuvable`,
	`page\s+non\s+trouv[ée]e`,
	// Generic indicators
	`under\s+construction`,
	`coming\s+soon`,
	`domain\s+for\s+sale`,
	`parked\s+domain`,
	`this\s+domain`,
	`buy\s+this\s+domain`,
	`website\s+expired`,
	`account\s+suspended`,
}

var soft404Regex = regexp.MustCompile("(?i)" + strings.Join(soft404Patterns, "|"))
