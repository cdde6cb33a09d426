package validate

import (
	"strings"

	"eventdir/models"
)

var severities = map[string]bool{"low": true, "medium": true, "high": true, "critical": true}

func (v *Validator) Feedback(payload map[string]any) (models.Feedback, error) {
	f := read(payload)
	fb := models.Feedback{
		Text:      f.str("text"),
		Email:     f.optStr("email"),
		CreatedAt: v.now().UTC(),
	}
	if f.err != nil {
		return models.Feedback{}, f.err
	}
	return fb, nil
}

func (v *Validator) BugReport(payload map[string]any) (models.BugReport, error) {
	f := read(payload)
	bug := models.BugReport{
		Function:  f.str("function"),
		Component: f.str("component"),
		Severity:  strings.ToLower(f.str("severity")),
		Text:      f.str("text"),
		Email:     f.optStr("email"),
		Status:    "open",
		CreatedAt: v.now().UTC(),
	}
	if f.err != nil {
		return models.BugReport{}, f.err
	}
	if !severities[bug.Severity] {
		return models.BugReport{}, failf("Attribute 'severity' has to be one of low, medium, high or critical.")
	}
	return bug, nil
}
