package webform

import (
	"fmt"
	"strconv"

	herrors "github.com/webform-civicrm/acceptance/internal/errors"
	"github.com/webform-civicrm/acceptance/internal/form"
	"github.com/webform-civicrm/acceptance/internal/pagestate"
)

// Settings drives the CiviCRM tab of a webform
type Settings struct {
	form *form.Driver
}

// ContributionConfig is the contribution set of the CiviCRM tab
type ContributionConfig struct {
	FinancialType    string
	PaymentProcessor string
	Soft             string
	SoftCreditType   string
}

// EnableCiviCRM ticks "Enable CiviCRM Processing"
func (s *Settings) EnableCiviCRM() error {
	return s.EnableField("Enable CiviCRM Processing")
}

// EnableField checks a field toggle and confirms it stuck
func (s *Settings) EnableField(locator string) error {
	if err := s.form.Check(locator); err != nil {
		return err
	}
	if err := s.form.WaitForAsyncUpdate(); err != nil {
		return err
	}
	checked, err := s.form.IsChecked(locator)
	if err != nil {
		return err
	}
	if !checked {
		return herrors.NewMismatch("checkbox "+locator, "checked", "true", "false", nil)
	}
	return nil
}

// Save submits the tab and waits for the confirmation message
func (s *Settings) Save() error {
	if err := s.form.PressButton("Save Settings"); err != nil {
		return err
	}
	content, err := s.form.Content()
	if err != nil {
		return err
	}
	doc, err := pagestate.Parse(content)
	if err != nil {
		return err
	}
	if !pagestate.ContainsText(doc.Text(), SettingsSavedMessage) {
		return herrors.NewMismatch("civicrm settings", "message", SettingsSavedMessage, "", doc.Messages(pagestate.MessageError))
	}
	return nil
}

func (s *Settings) selectAndWait(locator, value string) error {
	if err := s.form.SelectOption(locator, value); err != nil {
		return err
	}
	return s.form.WaitForAsyncUpdate()
}

// SetNumberOfContacts sets how many contacts the form collects
func (s *Settings) SetNumberOfContacts(n int) error {
	return s.selectAndWait("number_of_contacts", strconv.Itoa(n))
}

// SetLocationCount sets how many email/address/phone/... rows contact 1 gets
func (s *Settings) SetLocationCount(group string, n int) error {
	return s.selectAndWait(fmt.Sprintf("contact_1_number_of_%s", group), strconv.Itoa(n))
}

// SetSubTypeElement exposes the contact sub-type as a form element
func (s *Settings) SetSubTypeElement() error {
	return s.selectAndWait(form.Contact(1, "contact", "contact_sub_type").Name()+"[]", CreateElementOption)
}

// ConfigureContribution enables the contribution set and fills its options
func (s *Settings) ConfigureContribution(cfg ContributionConfig) error {
	if err := s.form.ClickLink("Contribution"); err != nil {
		return err
	}
	if err := s.selectAndWait(form.Contribution("enable_contribution").Name(), "Yes"); err != nil {
		return err
	}
	if cfg.FinancialType != "" {
		if err := s.selectAndWait(form.Contribution("financial_type_id").Name(), cfg.FinancialType); err != nil {
			return err
		}
	}
	if cfg.PaymentProcessor != "" {
		if err := s.selectAndWait(form.Contribution("payment_processor_id").Name(), cfg.PaymentProcessor); err != nil {
			return err
		}
	}
	if cfg.Soft != "" {
		if err := s.selectAndWait(form.Contribution("soft").Name()+"[]", cfg.Soft); err != nil {
			return err
		}
	}
	if cfg.SoftCreditType != "" {
		if err := s.selectAndWait(form.Contribution("soft_credit_type_id").Name(), cfg.SoftCreditType); err != nil {
			return err
		}
	}
	return nil
}

// SetBillingAddress answers "Enable Billing Address?"
func (s *Settings) SetBillingAddress(enabled bool) error {
	answer := "No"
	if enabled {
		answer = "Yes"
	}
	return s.selectAndWait("Enable Billing Address?", answer)
}

// AdditionalSettings opens the Additional Settings tab and returns the checksum help text
func (s *Settings) AdditionalSettings() (string, error) {
	if err := s.form.ClickLink("Additional Settings"); err != nil {
		return "", err
	}
	if err := s.form.WaitForVisible("#edit-checksum-text"); err != nil {
		return "", err
	}
	return s.form.Text("#edit-checksum-text")
}
