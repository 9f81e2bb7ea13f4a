package dto

import (
	"ledgerpulse/internal/domain/reports"
)

// ReportRequest bounds a report to a date range over entry dates.
type ReportRequest struct {
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
}

// ToFilter converts query parameters into a report filter.
func (r *ReportRequest) ToFilter() (reports.Filter, error) {
	var filter reports.Filter
	var err error

	if filter.DateFrom, err = ParseOptionalDate("dateFrom", r.DateFrom); err != nil {
		return filter, err
	}
	if filter.DateTo, err = ParseOptionalDate("dateTo", r.DateTo); err != nil {
		return filter, err
	}
	return filter, nil
}
