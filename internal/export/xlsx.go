// Package export reads and writes lead spreadsheets.
package export

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-crm/internal/model"
)

var leadHeader = []string{
	"name", "company", "email", "phone", "instagram", "telegram",
	"website", "source", "status", "temperature", "notes", "tags",
}

// WriteLeads writes leads to an XLSX file with a fixed header row.
func WriteLeads(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range leadHeader {
		header.AddCell().SetString(h)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		for _, v := range []string{
			l.Name, l.Company, l.Email, l.Phone, l.Instagram, l.Telegram,
			l.Website, l.Source, string(l.Status), string(l.Temperature),
			l.Notes, strings.Join(l.Tags, ", "),
		} {
			row.AddCell().SetString(v)
		}
	}

	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// ReadCandidates reads the first sheet of an XLSX file into candidate leads.
// The first row must be a header; columns are matched by name so partial
// sheets import cleanly.
func ReadCandidates(path string) ([]model.CandidateLead, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("export: %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil
	}

	cols := map[string]int{}
	for i, cell := range sheet.Rows[0].Cells {
		cols[strings.ToLower(strings.TrimSpace(cell.String()))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, eris.Errorf("export: %s has no name column", path)
	}

	get := func(row *xlsx.Row, col string) string {
		idx, ok := cols[col]
		if !ok || idx >= len(row.Cells) {
			return ""
		}
		return strings.TrimSpace(row.Cells[idx].String())
	}

	var candidates []model.CandidateLead
	for _, row := range sheet.Rows[1:] {
		name := get(row, "name")
		if name == "" {
			continue
		}
		cand := model.CandidateLead{
			Name:        name,
			Company:     get(row, "company"),
			LeadType:    get(row, "lead_type"),
			Email:       get(row, "email"),
			Phone:       get(row, "phone"),
			Instagram:   get(row, "instagram"),
			Telegram:    get(row, "telegram"),
			Website:     get(row, "website"),
			Notes:       get(row, "notes"),
			Temperature: model.Temperature(get(row, "temperature")),
		}
		if tags := get(row, "tags"); tags != "" {
			for _, t := range strings.Split(tags, ",") {
				if t = strings.TrimSpace(t); t != "" {
					cand.Tags = append(cand.Tags, t)
				}
			}
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}
