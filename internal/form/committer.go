// File: internal/form/committer.go
package form

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/applypilot-cli/api/schemas"
	"github.com/xkilldash9x/applypilot-cli/internal/config"
)

// Committer applies a resolved answer to the page. It never fails past its
// boundary: a mutation that cannot be performed is logged and reported as
// "field not filled", and the step goes on.
type Committer struct {
	page         schemas.Page
	logger       *zap.Logger
	dropdownWait time.Duration
}

func NewCommitter(page schemas.Page, cfg config.ApplyConfig, logger *zap.Logger) *Committer {
	return &Committer{
		page:         page,
		logger:       logger.Named("committer"),
		dropdownWait: cfg.DropdownWait,
	}
}

// Commit performs the UI mutation for one field and reports whether it
// succeeded.
func (c *Committer) Commit(ctx context.Context, field schemas.FieldDescriptor, answer Answer) bool {
	var err error
	switch field.Kind {
	case schemas.FieldCheckbox:
		err = c.commitCheckbox(ctx, field, answer.Check)
	case schemas.FieldRadio:
		err = c.commitRadio(ctx, field, answer.OptionIndex)
	case schemas.FieldSelect:
		err = c.commitSelect(ctx, field, answer)
	case schemas.FieldText, schemas.FieldTextarea:
		err = c.commitText(ctx, field, answer.Text)
	case schemas.FieldFileUpload:
		err = c.commitUpload(ctx, field, answer.FilePath)
	default:
		c.logger.Info("Skipping field of unknown kind", zap.String("question", field.Question))
		return false
	}

	if err != nil {
		c.logger.Warn("Field not filled",
			zap.String("question", field.Question),
			zap.String("kind", string(field.Kind)),
			zap.Error(err))
		return false
	}
	return true
}

// commitCheckbox toggles the box only when its current state differs from
// the desired one.
func (c *Committer) commitCheckbox(ctx context.Context, field schemas.FieldDescriptor, want bool) error {
	checkbox, err := field.Section.Query(ctx, "input[type='checkbox']")
	if err != nil {
		return err
	}
	checked, err := checkbox.Checked(ctx)
	if err != nil {
		return err
	}
	if checked == want {
		return nil
	}
	return checkbox.Click(ctx)
}

// commitRadio clicks the input at the resolved index. The descriptor carries
// the group's inputs from the same deduplicated matcher pass that produced
// the option list, so the index carries across; re-querying the section with
// a single matcher would miss groups built from custom markup.
func (c *Committer) commitRadio(ctx context.Context, field schemas.FieldDescriptor, index int) error {
	inputs := field.Inputs
	if len(inputs) == 0 {
		found, err := field.Section.QueryAll(ctx, "input[type='radio']")
		if err != nil {
			return err
		}
		inputs = found
	}
	if len(inputs) == 0 {
		return schemas.ErrNoElement
	}
	if index < 0 || index >= len(inputs) {
		index = 0
	}
	return inputs[index].Click(ctx)
}

func (c *Committer) commitSelect(ctx context.Context, field schemas.FieldDescriptor, answer Answer) error {
	if answer.Option == "" {
		return schemas.ErrNoElement
	}

	if native, err := field.Section.Query(ctx, "select"); err == nil {
		return native.SelectOption(ctx, answer.Option)
	}
	return c.commitCustomDropdown(ctx, field, answer)
}

// commitCustomDropdown reopens the widget and clicks the item whose text
// matches the resolved option.
func (c *Committer) commitCustomDropdown(ctx context.Context, field schemas.FieldDescriptor, answer Answer) error {
	trigger, err := field.Section.Query(ctx, dropdownTriggerSelector)
	if err != nil {
		return err
	}
	if err := trigger.Click(ctx); err != nil {
		return err
	}
	c.page.Settle(ctx, c.dropdownWait)

	want := strings.TrimSpace(answer.Option)
	for _, selector := range dropdownOptionSelectors {
		items, err := c.page.QueryAll(ctx, selector)
		if err != nil || len(items) == 0 {
			continue
		}
		for _, item := range items {
			text, err := item.Text(ctx)
			if err != nil {
				continue
			}
			if strings.TrimSpace(text) == want {
				return item.Click(ctx)
			}
		}
	}

	// Close the widget again so a failed commit does not leave it covering
	// the rest of the dialog.
	if closeErr := trigger.Click(ctx); closeErr != nil {
		c.logger.Debug("Could not close dropdown after failed commit", zap.Error(closeErr))
	}
	return schemas.ErrNoElement
}

func (c *Committer) commitText(ctx context.Context, field schemas.FieldDescriptor, value string) error {
	input := field.Input
	if input == nil {
		return schemas.ErrNoElement
	}
	if err := input.Clear(ctx); err != nil {
		return err
	}
	return input.Type(ctx, value)
}

// commitUpload attaches a document. An empty path means the resolver decided
// the control is not ours to fill; that is success, not failure.
func (c *Committer) commitUpload(ctx context.Context, field schemas.FieldDescriptor, path string) error {
	if path == "" {
		return nil
	}
	input := field.Input
	if input == nil {
		var err error
		input, err = field.Section.Query(ctx, "input[type='file']")
		if err != nil {
			return err
		}
	}
	return input.SetFiles(ctx, path)
}
