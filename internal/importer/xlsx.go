// Package importer reads vendor listings from XLSX workbooks.
package importer

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nearmi/localhunt-backend/internal/app/model"
	"github.com/nearmi/localhunt-backend/internal/app/service"
	"github.com/xuri/excelize/v2"
)

// Columns recognised in the header row. Matching ignores case and spaces.
const (
	colBusinessName = "businessname"
	colCategory     = "category"
	colDescription  = "description"
	colPhone        = "phonenumber"
	colStreet       = "street"
	colColony       = "colony"
	colCity         = "city"
	colState        = "state"
	colZipCode      = "zipcode"
	colCountry      = "country"
	colLatitude     = "latitude"
	colLongitude    = "longitude"
	colServices     = "services"
	colAwards       = "awards"
)

// Report counts what happened to each data row.
type Report struct {
	Rows       int `json:"rows"`
	Accepted   int `json:"accepted"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	BadCoords  int `json:"badCoords"`
}

// ReadVendors parses the first sheet of an XLSX workbook. Rows without a
// business name or category are skipped, as are repeats of the same
// name, colony and street.
func ReadVendors(r io.Reader) ([]service.VendorInput, Report, error) {
	var report Report

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, report, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, report, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, report, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, report, fmt.Errorf("no data found in XLSX file")
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[normalizeHeader(name)] = i
	}
	if _, ok := header[colBusinessName]; !ok {
		return nil, report, fmt.Errorf("missing %q column", "businessName")
	}
	if _, ok := header[colCategory]; !ok {
		return nil, report, fmt.Errorf("missing %q column", "category")
	}

	seen := make(map[string]bool)
	var inputs []service.VendorInput

	for _, row := range rows[1:] {
		report.Rows++
		cell := func(col string) string {
			i, ok := header[col]
			if !ok || i >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[i])
		}

		input := service.VendorInput{
			BusinessName: cell(colBusinessName),
			Category:     cell(colCategory),
			Description:  cell(colDescription),
			PhoneNumber:  cell(colPhone),
			Address: model.Address{
				Street:  cell(colStreet),
				Colony:  cell(colColony),
				City:    cell(colCity),
				State:   cell(colState),
				ZipCode: cell(colZipCode),
				Country: cell(colCountry),
			},
			Services: parseServices(cell(colServices)),
			Awards:   splitList(cell(colAwards)),
		}
		if input.BusinessName == "" || input.Category == "" {
			report.Skipped++
			continue
		}

		// coordinates are used only when both are present
		latRaw, lonRaw := cell(colLatitude), cell(colLongitude)
		if latRaw != "" || lonRaw != "" {
			lat, errLat := strconv.ParseFloat(latRaw, 64)
			lon, errLon := strconv.ParseFloat(lonRaw, 64)
			if errLat != nil || errLon != nil || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
				report.BadCoords++
			} else {
				input.Latitude = &lat
				input.Longitude = &lon
			}
		}

		key := strings.ToLower(input.BusinessName + "|" + input.Address.Colony + "|" + input.Address.Street)
		if seen[key] {
			report.Duplicates++
			continue
		}
		seen[key] = true

		inputs = append(inputs, input)
		report.Accepted++
	}

	return inputs, report, nil
}

func normalizeHeader(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", ""))
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseServices reads "Name:Price; Name" entries. A missing or malformed
// price is stored as zero.
func parseServices(s string) model.ServiceList {
	var services model.ServiceList
	for _, entry := range splitList(s) {
		name, price, _ := strings.Cut(entry, ":")
		svc := model.Service{Name: strings.TrimSpace(name)}
		if p, err := strconv.ParseFloat(strings.TrimSpace(price), 64); err == nil {
			svc.Price = p
		}
		services = append(services, svc)
	}
	return services
}
