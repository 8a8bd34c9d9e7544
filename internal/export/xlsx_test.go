package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-crm/internal/model"
)

func TestWriteLeads_ReadBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "leads.xlsx")

	leads := []model.Lead{
		{
			Name:        "Acme",
			Company:     "Acme GmbH",
			Email:       "info@acme.de",
			Phone:       "+49123",
			Source:      "Deep Research",
			Status:      model.LeadStatusNew,
			Temperature: model.TemperatureWarm,
			Tags:        []string{"restaurant", "mitte"},
		},
		{Name: "Beta Cafe", Status: model.LeadStatusContacted, Temperature: model.TemperatureCold},
	}
	require.NoError(t, WriteLeads(path, leads))

	cands, err := ReadCandidates(path)
	require.NoError(t, err)
	require.Len(t, cands, 2)

	assert.Equal(t, "Acme", cands[0].Name)
	assert.Equal(t, "Acme GmbH", cands[0].Company)
	assert.Equal(t, "info@acme.de", cands[0].Email)
	assert.Equal(t, "+49123", cands[0].Phone)
	assert.Equal(t, model.TemperatureWarm, cands[0].Temperature)
	assert.Equal(t, []string{"restaurant", "mitte"}, cands[0].Tags)
	assert.Equal(t, "Beta Cafe", cands[1].Name)
}

func TestReadCandidates_PartialColumns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)

	header := sheet.AddRow()
	for _, h := range []string{"Name", "Email"} {
		header.AddCell().SetString(h)
	}
	row := sheet.AddRow()
	row.AddCell().SetString("Acme")
	row.AddCell().SetString("info@acme.de")
	require.NoError(t, f.Save(path))

	cands, err := ReadCandidates(path)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Acme", cands[0].Name)
	assert.Equal(t, "info@acme.de", cands[0].Email)
	assert.Empty(t, cands[0].Phone)
}

func TestReadCandidates_SkipsRowsWithoutName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)

	sheet.AddRow().AddCell().SetString("name")
	sheet.AddRow().AddCell().SetString("")
	sheet.AddRow().AddCell().SetString("Acme")
	require.NoError(t, f.Save(path))

	cands, err := ReadCandidates(path)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "Acme", cands[0].Name)
}

func TestReadCandidates_MissingNameColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "noname.xlsx")

	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sheet1")
	require.NoError(t, err)
	sheet.AddRow().AddCell().SetString("email")
	require.NoError(t, f.Save(path))

	_, err = ReadCandidates(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no name column")
}

func TestReadCandidates_MissingFile(t *testing.T) {
	_, err := ReadCandidates(filepath.Join(t.TempDir(), "nope.xlsx"))
	require.Error(t, err)
}
