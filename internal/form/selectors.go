// File: internal/form/selectors.go
package form

// The portal ships no stable schema and renews its markup without notice, so
// every structural lookup is an ordered list of candidate selectors tried
// first-match-wins. Widening a list is the expected maintenance response to
// UI drift; reordering one changes classification behavior.

// sectionSelectors locate the structural containers that each host one
// logical question, from most to least specific.
var sectionSelectors = []string{
	".jobs-easy-apply-form-section__grouping",
	".fb-dash-form-element",
	".artdeco-text-input--container",
	"[data-test-form-element]",
	".jobs-easy-apply-form-element",
	".jobs-easy-apply-modal__content",
	".jobs-easy-apply-form-section",
	".artdeco-modal__content",
}

// labelSelectors extract the question text of a section, in priority order.
var labelSelectors = []string{
	"label",
	".artdeco-text-input--label",
	".jobs-easy-apply-form-element__label",
	".t-16.t-bold",
	".fb-form-element-label",
	"legend",
	"[for]",
	".fb-dash-form-element__label",
	"h3",
	".jobs-easy-apply-modal__section-title",
}

// radioSelectors find the individual inputs of a radio group. Custom widgets
// hide the native input behind several markup variants.
var radioSelectors = []string{
	"input[type='radio']",
	"[data-test-text-selectable-option__input]",
	".fb-form-element_checkbox[type='radio']",
	"[role='radio']",
	"input[type='radio'][data-test-text-selectable-option_input]",
	".jobs-easy-apply-form-element input[type='radio']",
}

// customDropdownSelectors mark a section as hosting a non-native select.
var customDropdownSelectors = []string{
	"[role='combobox']",
	"[aria-haspopup='listbox']",
	".artdeco-dropdown__trigger",
	".select-choices",
	".custom-select",
	"[data-control-name='select']",
	".jobs-easy-apply-form-element__dropdown",
	".fb-dropdown__select",
}

// dropdownTriggerSelector opens a custom dropdown so its options can be read.
const dropdownTriggerSelector = "[role='combobox'], [aria-haspopup='listbox'], .artdeco-dropdown__trigger"

// dropdownOptionSelectors read the option items of an opened custom dropdown.
var dropdownOptionSelectors = []string{
	"li.artdeco-dropdown__item",
	"[role='option']",
	".artdeco-dropdown__content div",
	".select-choices li",
	".custom-select-options li",
	".jobs-easy-apply-form-element__dropdown-option",
}

// textInputSelector matches native single-line inputs.
const textInputSelector = "input[type='text'], input[type='number'], input[type='email'], input[type='tel']"

// customTextInputSelectors match single-line inputs rendered by the portal's
// own widget library.
var customTextInputSelectors = []string{
	".artdeco-text-input--input",
	".fb-single-line-text__input",
	".jobs-easy-apply-form-element__input",
	".artdeco-text-input--container input",
}

// fileUploadSelectors locate attachment inputs anywhere in the dialog.
var fileUploadSelectors = []string{
	"input[type='file']",
	"input[name='file']",
	"input[accept='.pdf,.doc,.docx']",
}

// errorMessageSelector finds an inline validation message near an input. The
// message text is mined for numeric range hints.
const errorMessageSelector = "div[class*='error'], div[class*='feedback'], span[class*='error'], p[class*='error']"

// dropdownIndicatorTokens flag a section as select-like when its markup
// mentions them and a dropdown/select-classed child exists.
var dropdownIndicatorTokens = []string{"dropdown", "select", "combobox", "listbox", "chosen-container"}

// uploadTokens gate the file-upload classification: the input must be
// accompanied by markup that actually talks about attaching a document.
var uploadTokens = []string{"upload", "file", "resume", "cv"}

// alwaysAgreeTerms resolve a checkbox to checked unconditionally. The bias
// toward agreeing is deliberate: an unchecked consent box stalls the dialog.
var alwaysAgreeTerms = []string{
	"agree",
	"accept",
	"consent",
	"confirm",
	"acknowledge",
	"i have read",
	"i understand",
	"privacy policy",
	"terms",
	"conditions",
}

// socialOptInTerms mark checkboxes whose answer is a preference rather than
// a requirement; those are decided by the answer gateway.
var socialOptInTerms = []string{"follow", "subscribe", "notification", "update"}

// numericErrorTerms flag a validation message as describing a numeric field.
var numericErrorTerms = []string{"number", "numeric", "digits"}

// successPhrases appear in the page content once an application went through.
var successPhrases = []string{
	"application was sent",
	"successfully submitted",
	"application submitted",
	"thank you for applying",
	"application received",
}

// dismissSelectors close the confirmation overlay after submission.
var dismissSelectors = []string{
	"button[aria-label='Dismiss']",
	"button.artdeco-modal__dismiss",
	".artdeco-modal__dismiss",
	"button.artdeco-button[aria-label='Close']",
	"button[data-test-modal-close-button]",
}

// Navigation probes, one tier per action, highest priority first. Each tier
// lists CSS probes tried before the textual button search.
var (
	submitButtonSelectors = []string{
		"button[aria-label='Submit application']",
		"button[data-control-name='submit_unify']",
	}
	reviewButtonSelectors = []string{
		"button[aria-label='Review application']",
		"button[data-control-name='review_unify']",
	}
	nextButtonSelectors = []string{
		"button[aria-label='Continue to next step']",
		"button[data-control-name='continue_unify']",
	}

	submitButtonTexts = []string{"submit application", "submit"}
	reviewButtonTexts = []string{"review"}
	nextButtonTexts   = []string{"next", "continue"}
)
