package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/textutil"
)

// Extractor reads one field from a listing card. ok is false when the pattern found nothing.
type Extractor interface {
	TryExtract(card *goquery.Selection) (string, bool)
}

// textAt reads the collapsed text of the first element matching selector. An empty selector
// reads the card itself.
type textAt struct {
	selector string
}

func (e textAt) TryExtract(card *goquery.Selection) (string, bool) {
	sel := card
	if e.selector != "" {
		sel = card.Find(e.selector).First()
	}
	if sel.Length() == 0 {
		return "", false
	}
	text := textutil.CollapseSpace(sel.Text())
	return text, text != ""
}

// attrAt reads an attribute of the first element matching selector.
type attrAt struct {
	selector string
	attr     string
}

func (e attrAt) TryExtract(card *goquery.Selection) (string, bool) {
	sel := card
	if e.selector != "" {
		sel = card.Find(e.selector).First()
	}
	value, ok := sel.Attr(e.attr)
	value = strings.TrimSpace(value)
	return value, ok && value != ""
}

// firstMatch tries each extractor in order and keeps the first hit.
type firstMatch []Extractor

func (f firstMatch) TryExtract(card *goquery.Selection) (string, bool) {
	for _, e := range f {
		if value, ok := e.TryExtract(card); ok {
			return value, true
		}
	}
	return "", false
}

// Text builds an extractor over candidate selectors for element text.
func Text(selectors ...string) Extractor {
	out := make(firstMatch, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, textAt{selector: s})
	}
	return out
}

// Attr builds an extractor over candidate selectors for one attribute.
func Attr(attr string, selectors ...string) Extractor {
	out := make(firstMatch, 0, len(selectors))
	for _, s := range selectors {
		out = append(out, attrAt{selector: s, attr: attr})
	}
	return out
}

// Any combines extractors, first hit wins.
func Any(extractors ...Extractor) Extractor {
	return firstMatch(extractors)
}

// CardSchema describes where each field of a listing card lives. Cards holds candidate card
// selectors; the first one matching any element is used. Nil extractors leave the field empty.
type CardSchema struct {
	Cards       []string
	Title       Extractor
	Description Extractor
	Dates       Extractor
	EndDate     Extractor
	Location    Extractor
	Link        Extractor
	Organizer   Extractor
	Image       Extractor
	Capacity    Extractor
	Category    Extractor
	Tags        []string
}

// FindCards returns the cards matched by the first card selector that matches anything.
func (s CardSchema) FindCards(doc *goquery.Document) *goquery.Selection {
	for _, selector := range s.Cards {
		if cards := doc.Find(selector); cards.Length() > 0 {
			return cards
		}
	}
	return nil
}

// Extract pulls every card from doc. Relative links and images are resolved against pageURL.
func (s CardSchema) Extract(doc *goquery.Document, pageURL string) []event.BrowserCard {
	cards := s.FindCards(doc)
	if cards == nil {
		return nil
	}
	out := make([]event.BrowserCard, 0, cards.Length())
	cards.Each(func(_ int, card *goquery.Selection) {
		out = append(out, event.BrowserCard{
			Title:       field(s.Title, card),
			Description: field(s.Description, card),
			Dates:       field(s.Dates, card),
			EndDate:     field(s.EndDate, card),
			Location:    field(s.Location, card),
			Link:        textutil.ResolveLink(pageURL, field(s.Link, card)),
			Organizer:   field(s.Organizer, card),
			Image:       textutil.ResolveLink(pageURL, field(s.Image, card)),
			Tags:        texts(card, s.Tags),
			Capacity:    field(s.Capacity, card),
			Category:    field(s.Category, card),
		})
	})
	return out
}

func field(e Extractor, card *goquery.Selection) string {
	if e == nil {
		return ""
	}
	value, _ := e.TryExtract(card)
	return value
}

// texts collects the text of every element under the first selector with matches.
func texts(card *goquery.Selection, selectors []string) []string {
	for _, selector := range selectors {
		matches := card.Find(selector)
		if matches.Length() == 0 {
			continue
		}
		out := make([]string, 0, matches.Length())
		matches.Each(func(_ int, s *goquery.Selection) {
			if text := textutil.CollapseSpace(s.Text()); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
	return nil
}
