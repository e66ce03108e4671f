package engine

import (
	"strings"

	"github.com/henmie/novelflow/pkg/models"
)

// eachPattern matches a minimal Handlebars-lite {{#each items}}...{{/each}}
// block.
var eachPattern = `{{#each items}}`
var eachClose = `{{/each}}`

// SettingInjector expands selected settings into a system-prompt prefix
// using per-category templates.
type SettingInjector struct {
	// Templates maps category -> an enabled template string. Categories
	// with no enabled template fall back to the default
	// "【{categoryLabel}】\n{{items}}" shape.
	Templates map[string]string
}

// NewSettingInjector builds an injector from a category->template map.
func NewSettingInjector(templates map[string]string) *SettingInjector {
	if templates == nil {
		templates = map[string]string{}
	}
	return &SettingInjector{Templates: templates}
}

// Inject filters settings to enabled+selected, groups by category, and
// renders each category's template, concatenating the results with blank
// lines.
func (si *SettingInjector) Inject(selectedIDs []string, library []models.Setting) string {
	selected := make(map[string]bool, len(selectedIDs))
	for _, id := range selectedIDs {
		selected[id] = true
	}

	order := []string{}
	byCategory := map[string][]models.Setting{}
	for _, s := range library {
		if !s.Enabled || !selected[s.ID] {
			continue
		}
		if _, seen := byCategory[s.Category]; !seen {
			order = append(order, s.Category)
		}
		byCategory[s.Category] = append(byCategory[s.Category], s)
	}

	var blocks []string
	for _, category := range order {
		blocks = append(blocks, si.renderCategory(category, byCategory[category]))
	}
	return strings.Join(blocks, "\n\n")
}

func (si *SettingInjector) renderCategory(category string, settings []models.Setting) string {
	tmpl, ok := si.Templates[category]
	if !ok || tmpl == "" {
		tmpl = "【" + category + "】\n{{items}}"
	}

	if start := strings.Index(tmpl, eachPattern); start >= 0 {
		end := strings.Index(tmpl, eachClose)
		if end > start {
			inner := tmpl[start+len(eachPattern) : end]
			var rendered strings.Builder
			for _, s := range settings {
				item := strings.ReplaceAll(inner, "{{name}}", s.Name)
				item = strings.ReplaceAll(item, "{{content}}", s.Content)
				rendered.WriteString(item)
			}
			return tmpl[:start] + rendered.String() + tmpl[end+len(eachClose):]
		}
	}

	lines := make([]string, 0, len(settings))
	for _, s := range settings {
		lines = append(lines, s.Name+"："+s.Content)
	}
	return strings.ReplaceAll(tmpl, "{{items}}", strings.Join(lines, "\n\n"))
}
