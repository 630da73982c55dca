package dashboard

import (
	"errors"
	"fmt"

	"gnucashboard/internal/sink"
	"gnucashboard/internal/views/trends"
)

var (
	ErrUnknownView       = errors.New("unknown view")
	ErrUnsupportedAction = errors.New("unsupported action")
)

// ActionType names a user input.
type ActionType string

const (
	// Settings inputs, accepted by every view.
	ActionCategoryType ActionType = "category_type"
	ActionCategories   ActionType = "categories"
	ActionMonthRange   ActionType = "month_range"

	// View inputs.
	ActionSelectCategory ActionType = "select_category"
	ActionSelectMonths   ActionType = "select_months"
	ActionSelectMonth    ActionType = "select_month"
	ActionHeatmapMode    ActionType = "heatmap_mode"
)

// Action is one user input as sent by the browser.
type Action struct {
	Type     ActionType `json:"type"`
	Index    int        `json:"index,omitempty"`
	Indices  []int      `json:"indices,omitempty"`
	Start    int64      `json:"start,omitempty"`
	End      int64      `json:"end,omitempty"`
	Category string     `json:"category,omitempty"`
	Month    *string    `json:"month,omitempty"`
	Mode     string     `json:"mode,omitempty"`
}

func (a Action) isSettings() bool {
	switch a.Type {
	case ActionCategoryType, ActionCategories, ActionMonthRange:
		return true
	}
	return false
}

// Apply feeds an action to the App. Settings actions re-render view so that
// it reflects the new filters; view actions go to the view's own handler.
func (a *App) Apply(view sink.View, act Action) error {
	if _, ok := sink.ParseView(string(view)); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownView, view)
	}
	if act.isSettings() {
		if err := a.applySettings(act); err != nil {
			return err
		}
		_, err := a.Render(view)
		return err
	}

	switch {
	case view == sink.ViewCategory && act.Type == ActionSelectCategory:
		return a.category.SelectCategory(act.Category)
	case view == sink.ViewCategory && act.Type == ActionSelectMonths:
		return a.category.SelectMonths(act.Indices)
	case view == sink.ViewOverview && act.Type == ActionSelectMonth:
		return a.overview.SelectMonth(act.Month)
	case view == sink.ViewTrends && act.Type == ActionSelectMonths:
		return a.trends.SelectMonths(act.Indices)
	case view == sink.ViewTrends && act.Type == ActionHeatmapMode:
		mode, err := parseHeatmapMode(act.Mode)
		if err != nil {
			return err
		}
		return a.trends.SelectHeatmapMode(mode)
	}
	return fmt.Errorf("%w: %q on %s", ErrUnsupportedAction, act.Type, view)
}

func (a *App) applySettings(act Action) error {
	switch act.Type {
	case ActionCategoryType:
		return a.settings.OnCategoryTypeChanged(act.Index)
	case ActionCategories:
		return a.settings.OnCategorySelectionChanged(act.Indices)
	case ActionMonthRange:
		return a.settings.OnMonthRangeChanged(act.Start, act.End)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedAction, act.Type)
}

func parseHeatmapMode(s string) (trends.HeatmapMode, error) {
	for _, m := range []trends.HeatmapMode{trends.ByPrice, trends.ByCount} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", trends.ErrInvalidHeatmapMode, s)
}
