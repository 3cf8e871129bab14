// Package webform holds page objects for the webform under test: its routes,
// the CiviCRM settings tab, the element builder and the public form widgets.
package webform

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/webform-civicrm/acceptance/internal/browser"
	"github.com/webform-civicrm/acceptance/internal/config"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

// Webform bundles the page objects of one webform
type Webform struct {
	Routes
	Title        string
	Settings     *Settings
	Elements     *Elements
	Autocomplete *Autocomplete

	session *browser.Session
	form    *form.Driver
}

func New(cfg config.WebformConfig, session *browser.Session, driver *form.Driver) *Webform {
	return &Webform{
		Routes:       Routes{WebformID: cfg.ID},
		Title:        cfg.Title,
		Settings:     &Settings{form: driver},
		Elements:     &Elements{form: driver, states: map[string]WidgetState{}},
		Autocomplete: &Autocomplete{form: driver},
		session:      session,
		form:         driver,
	}
}

// Open navigates to path and waits for the page's AJAX to settle
func (w *Webform) Open(path string) error {
	if err := w.session.NavigateTo(path); err != nil {
		return err
	}
	return w.form.WaitForAsyncUpdate()
}

// SubmittedMessage is this form's confirmation text
func (w *Webform) SubmittedMessage() string {
	return SubmittedMessage(w.Title)
}

// EnableDrafts lets role save drafts of the form
func (w *Webform) EnableDrafts(role string) error {
	if err := w.Open(w.SubmissionSettings()); err != nil {
		return err
	}
	if err := w.form.SelectOption("draft", role); err != nil {
		return err
	}
	return w.form.PressButton("Save")
}

var stickyID = regexp.MustCompile(`^webform-submission-(\d+)-sticky$`)

// LatestSubmissionID returns the highest submission id listed on the open results page
func (w *Webform) LatestSubmissionID() (int, error) {
	content, err := w.form.Content()
	if err != nil {
		return 0, err
	}
	doc, err := pagestate.Parse(content)
	if err != nil {
		return 0, err
	}
	return latestSubmission(doc)
}

func latestSubmission(doc *pagestate.Document) (int, error) {
	latest := 0
	for _, id := range doc.ElementIDs(stickyID) {
		sid, err := strconv.Atoi(stickyID.FindStringSubmatch(id)[1])
		if err == nil && sid > latest {
			latest = sid
		}
	}
	if latest == 0 {
		return 0, fmt.Errorf("no submissions listed")
	}
	return latest, nil
}

// StickySelector is the star toggle of submission sid on the results page
func StickySelector(sid int) string {
	return fmt.Sprintf("#webform-submission-%d-sticky", sid)
}

// ToggleSticky clicks the star of submission sid on the results page
func (w *Webform) ToggleSticky(sid int) error {
	if err := w.form.Click(StickySelector(sid)); err != nil {
		return err
	}
	return w.form.WaitForAsyncUpdate()
}
