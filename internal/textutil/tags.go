package textutil

import (
	"strings"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

var tagRules = []keywordRule{
	{"AI", []string{"ai", "artificial intelligence", "machine learning", "ml", "deep learning", "llm", "genai"}},
	{"Web Development", []string{"web", "frontend", "backend", "full-stack", "fullstack", "react", "javascript"}},
	{"Blockchain", []string{"blockchain", "web3", "crypto", "ethereum", "solidity"}},
	{"Cloud", []string{"cloud", "aws", "azure", "gcp", "devops", "kubernetes"}},
	{"Data Science", []string{"data science", "data", "analytics", "datathon"}},
	{"Mobile", []string{"android", "ios", "mobile", "flutter"}},
	{"Cybersecurity", []string{"security", "cybersecurity", "ctf", "hacking"}},
	{"Open Source", []string{"open source", "open-source", "github"}},
	{"Python", []string{"python"}},
	{"Design", []string{"design", "ui", "ux", "figma"}},
	{"IoT", []string{"iot", "hardware", "robotics", "embedded"}},
	{"Game Development", []string{"game", "gaming", "unity"}},
}

// BuildTags merges up to three source tags with tags generated from the title, description, and
// category. Tags are deduplicated case-insensitively and capped at six.
func BuildTags(sourceTags []string, title, description, category string) []string {
	out := make([]string, 0, event.MaxTags)
	seen := make(map[string]struct{}, event.MaxTags)
	add := func(tag string) {
		tag = CollapseSpace(tag)
		key := strings.ToLower(tag)
		if tag == "" || len(out) >= event.MaxTags {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, tag)
	}

	taken := 0
	for _, tag := range sourceTags {
		if taken == event.MaxSourceTags {
			break
		}
		before := len(out)
		add(tag)
		if len(out) > before {
			taken++
		}
	}

	text := wordText(title + " " + description)
	for _, rule := range tagRules {
		for _, kw := range rule.keywords {
			if containsWord(text, kw) {
				add(rule.category)
				break
			}
		}
	}
	add(category)
	return out
}
