package lesson

import (
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestQueryFilter_MonthFilter(t *testing.T) {
	tests := []struct {
		year     int
		month    time.Month
		wantFrom time.Time
		wantTo   time.Time
	}{
		{2024, time.February, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{2023, time.December, time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC), time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.month.String(), func(t *testing.T) {
			qf := &QueryFilter{ClassID: "c1"}
			qf.MonthFilter(tt.year, tt.month)
			assert.Equal(t, tt.wantFrom, qf.From)
			assert.Equal(t, tt.wantTo, qf.To)
			assert.Equal(t, "c1", qf.ClassID)
		})
	}
}

func TestNewLesson_Validate(t *testing.T) {
	validate := validator.New()
	tests := []struct {
		name    string
		nl      NewLesson
		wantErr bool
	}{
		{name: "valid", nl: NewLesson{ClassID: "c1", Date: " 2024-03-02 ", Topic: " Tajweed "}},
		{name: "missing topic", nl: NewLesson{ClassID: "c1", Date: "2024-03-02", Topic: "  "}, wantErr: true},
		{name: "bad date", nl: NewLesson{ClassID: "c1", Date: "02/03/2024", Topic: "Tajweed"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nl.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, "Tajweed", tt.nl.Topic)
			assert.Equal(t, "2024-03-02", tt.nl.Date)
		})
	}
}
