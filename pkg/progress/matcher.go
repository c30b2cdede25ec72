package progress

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"car-service/pkg/model"
)

// Reason names the rule that attached an image to a task.
type Reason string

const (
	ReasonNone       Reason = ""
	ReasonOwned      Reason = "owned"
	ReasonExactTitle Reason = "exact-title"
	ReasonTitleWord  Reason = "title-word"
	ReasonOilFilter  Reason = "category-oil"
	ReasonAC         Reason = "category-ac"
	ReasonInspection Reason = "category-inspection"
	ReasonGearbox    Reason = "category-transmission"
)

// ImageMatch is an image selected for a task and the rule that selected it.
type ImageMatch struct {
	model.Image
	Reason Reason `json:"reason"`
}

// RelevantImages returns the images to show for a task. Task-owned images win
// outright; otherwise every shared image visible to the viewer is tested on
// its own and kept when any rule fires. Input order is preserved.
func RelevantImages(task model.ServiceTask, shared []model.SharedImage, viewerCustomerID string) []model.Image {
	matches := MatchImages(task, shared, viewerCustomerID)
	out := make([]model.Image, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.Image)
	}
	return out
}

// MatchImages is RelevantImages with the firing rule attached to each result.
func MatchImages(task model.ServiceTask, shared []model.SharedImage, viewerCustomerID string) []ImageMatch {
	if len(task.Images) > 0 {
		out := make([]ImageMatch, 0, len(task.Images))
		for _, img := range task.Images {
			out = append(out, ImageMatch{Image: img, Reason: ReasonOwned})
		}
		return out
	}
	m := newTaskMatcher(task.Title)
	out := []ImageMatch{}
	for _, img := range shared {
		if !img.VisibleTo(viewerCustomerID) {
			continue
		}
		if r := m.match(img); r != ReasonNone {
			out = append(out, ImageMatch{Image: model.Image{URL: img.URL, Title: img.Title}, Reason: r})
		}
	}
	return out
}

// Match tests a single shared image against a task title, ignoring visibility.
func Match(taskTitle string, img model.SharedImage) Reason {
	return newTaskMatcher(taskTitle).match(img)
}

type taskMatcher struct {
	title      string // lower-cased
	normalized string
	words      []*regexp.Regexp
}

func newTaskMatcher(title string) taskMatcher {
	m := taskMatcher{
		title:      strings.ToLower(title),
		normalized: normalize(title),
	}
	for _, w := range strings.Fields(title) {
		if utf8.RuneCountInString(w) <= 2 {
			continue
		}
		// \b only knows ASCII word characters, so spell out Unicode boundaries
		m.words = append(m.words, regexp.MustCompile(`(?i)(?:^|[^\pL\pN_])`+regexp.QuoteMeta(w)+`(?:$|[^\pL\pN_])`))
	}
	return m
}

func (m taskMatcher) match(img model.SharedImage) Reason {
	imgTitle := strings.ToLower(img.Title)
	if m.normalized != "" && normalize(img.Title) != "" && normalize(img.Title) == m.normalized {
		return ReasonExactTitle
	}
	if imgTitle != "" {
		for _, re := range m.words {
			if re.MatchString(img.Title) {
				return ReasonTitleWord
			}
		}
	}
	return m.categoryFallback(img, imgTitle)
}

// categoryFallback holds the loose substring rules that keep recall up for
// independently authored titles without pulling AC photos into every service task.
func (m taskMatcher) categoryFallback(img model.SharedImage, imgTitle string) Reason {
	category := strings.ToLower(strings.TrimSpace(img.Category))
	switch {
	case containsAny(m.title, "oil", "filter") && category == model.CategoryService && strings.Contains(imgTitle, "oil"):
		return ReasonOilFilter
	case strings.Contains(m.title, "ac") && strings.Contains(imgTitle, "ac"):
		return ReasonAC
	case strings.Contains(m.title, "inspection") && category == model.CategoryInspection:
		return ReasonInspection
	case containsAny(m.title, "gear", "transmission") && containsAny(imgTitle, "gear", "transmission"):
		return ReasonGearbox
	}
	return ReasonNone
}

// normalize lower-cases and collapses whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
