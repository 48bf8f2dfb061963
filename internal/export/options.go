package export

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/odyssey-erp/odyssey-reports/internal/locale"
)

// Orientation of the printed page.
type Orientation string

const (
	Portrait  Orientation = "portrait"
	Landscape Orientation = "landscape"
)

// PageSize of the printed page.
type PageSize string

const (
	PageA4     PageSize = "A4"
	PageA3     PageSize = "A3"
	PageLetter PageSize = "Letter"
	PageLegal  PageSize = "Legal"
)

// Dimensions returns width and height in inches for portrait orientation.
func (p PageSize) Dimensions() (float64, float64) {
	switch p {
	case PageA3:
		return 11.7, 16.54
	case PageLetter:
		return 8.5, 11
	case PageLegal:
		return 8.5, 14
	}
	return 8.27, 11.7
}

// Margins are CSS lengths such as "15mm".
type Margins struct {
	Top    string `json:"top,omitempty"`
	Right  string `json:"right,omitempty"`
	Bottom string `json:"bottom,omitempty"`
	Left   string `json:"left,omitempty"`
}

// CSS renders the margins as a CSS shorthand.
func (m Margins) CSS() string {
	return strings.Join([]string{m.Top, m.Right, m.Bottom, m.Left}, " ")
}

// ExcelOptions tunes the workbook serializer.
type ExcelOptions struct {
	AutoFilter   bool   `json:"auto_filter"`
	FreezeHeader bool   `json:"freeze_header"`
	SheetName    string `json:"sheet_name,omitempty" validate:"omitempty,max=31"`
}

// Options configure a single export.
type Options struct {
	Format            Format          `json:"format" validate:"required,oneof=pdf excel csv html json"`
	Title             string          `json:"title" validate:"max=200"`
	Subtitle          string          `json:"subtitle,omitempty" validate:"max=500"`
	Orientation       Orientation     `json:"orientation,omitempty" validate:"omitempty,oneof=portrait landscape"`
	PageSize          PageSize        `json:"page_size,omitempty" validate:"omitempty,oneof=A4 A3 Letter Legal"`
	Margins           Margins         `json:"margins"`
	FontSize          int             `json:"font_size,omitempty" validate:"omitempty,min=6,max=32"`
	RTLLayout         *bool           `json:"rtl_layout,omitempty"`
	UseArabicNumerals *bool           `json:"use_arabic_numerals,omitempty"`
	Language          locale.Language `json:"language,omitempty" validate:"omitempty,oneof=ar en"`
	CleanText         bool            `json:"clean_text"`
	CurrencySymbol    string          `json:"currency_symbol,omitempty"`
	Excel             ExcelOptions    `json:"excel"`
}

// Defaults are the service-wide fallbacks for unset options.
type Defaults struct {
	Language          locale.Language
	UseArabicNumerals bool
	CurrencySymbol    string
}

const (
	defaultFontSize  = 10
	defaultMargin    = "15mm"
	defaultSheetName = "تقرير"
)

// resolved is Options with every default applied.
type resolved struct {
	Options
	rtl     bool
	numbers bool
}

func (o Options) resolve(d Defaults) resolved {
	if o.Language == "" {
		o.Language = d.Language
	}
	if o.Language == "" {
		o.Language = locale.Arabic
	}
	if o.Orientation == "" {
		o.Orientation = Portrait
	}
	if o.PageSize == "" {
		o.PageSize = PageA4
	}
	if o.FontSize == 0 {
		o.FontSize = defaultFontSize
	}
	if o.Margins.Top == "" {
		o.Margins.Top = defaultMargin
	}
	if o.Margins.Right == "" {
		o.Margins.Right = defaultMargin
	}
	if o.Margins.Bottom == "" {
		o.Margins.Bottom = defaultMargin
	}
	if o.Margins.Left == "" {
		o.Margins.Left = defaultMargin
	}
	if o.CurrencySymbol == "" {
		o.CurrencySymbol = d.CurrencySymbol
	}
	if strings.TrimSpace(o.Title) == "" {
		if o.Language == locale.English {
			o.Title = "Report"
		} else {
			o.Title = "تقرير"
		}
	}
	if o.Excel.SheetName == "" {
		o.Excel.SheetName = defaultSheetName
	}
	r := resolved{Options: o, rtl: o.Language.RTL(), numbers: d.UseArabicNumerals}
	if o.RTLLayout != nil {
		r.rtl = *o.RTLLayout
	}
	if o.UseArabicNumerals != nil {
		r.numbers = *o.UseArabicNumerals
	}
	return r
}

// context returns the formatter context for target.
func (r resolved) context(target Format) Context {
	return Context{
		Format:            target,
		UseArabicNumerals: r.numbers && target != FormatCSV,
		Language:          r.Language,
		RTL:               r.rtl,
		CleanText:         r.CleanText,
		CurrencySymbol:    r.CurrencySymbol,
	}
}

var slugUnsafe = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Filename builds "<slug(title)>_<yyyy-mm-dd>.<ext>".
func Filename(title string, at time.Time, f Format) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(strings.TrimSpace(title)), "_"), "_")
	if slug == "" {
		slug = "report"
	}
	return fmt.Sprintf("%s_%s.%s", slug, at.Format("2006-01-02"), f.Extension())
}
