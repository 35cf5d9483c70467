package settings

import (
	"encoding/json"
	"fmt"
	"time"
)

// FromJSON builds a Settings from a stored document, merging it over the
// defaults field by field. Absent fields keep their default; present
// objects merge recursively; present arrays replace the default wholesale.
// An empty document yields the defaults.
func FromJSON(data []byte) (*Settings, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := cfg.Merge(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Merge applies a partial JSON document over s.
func (s *Settings) Merge(data []byte) error {
	var doc struct {
		Shop                json.RawMessage                 `json:"shop"`
		Waiting             json.RawMessage                 `json:"waiting"`
		Services            map[string]json.RawMessage      `json:"services"`
		WeeklyHours         map[time.Weekday]json.RawMessage `json:"businessHours"`
		ClosedWeekdays      *[]time.Weekday                 `json:"closedDays"`
		NthWeekdayClosures  *[]NthWeekdayClosure            `json:"weeklyClosed"`
		HolidayHours        json.RawMessage                 `json:"holidayHours"`
		HolidayOverrideDays *[]time.Weekday                 `json:"holidayOverrideDays"`
		AdminPIN            *string                         `json:"adminPin"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}

	if err := mergeInto(doc.Shop, &s.Shop); err != nil {
		return err
	}
	if err := mergeInto(doc.Waiting, &s.Waiting); err != nil {
		return err
	}
	for kind, raw := range doc.Services {
		svc := s.Services[kind]
		if err := mergeInto(raw, &svc); err != nil {
			return err
		}
		s.Services[kind] = svc
	}
	for wd, raw := range doc.WeeklyHours {
		hours := s.WeeklyHours[wd]
		if err := mergeInto(raw, &hours); err != nil {
			return err
		}
		s.WeeklyHours[wd] = hours
	}
	if doc.ClosedWeekdays != nil {
		s.ClosedWeekdays = *doc.ClosedWeekdays
	}
	if doc.NthWeekdayClosures != nil {
		s.NthWeekdayClosures = *doc.NthWeekdayClosures
	}
	if err := mergeInto(doc.HolidayHours, &s.HolidayHours); err != nil {
		return err
	}
	if doc.HolidayOverrideDays != nil {
		s.HolidayOverrideWeekdays = *doc.HolidayOverrideDays
	}
	if doc.AdminPIN != nil {
		s.AdminPIN = *doc.AdminPIN
	}
	return nil
}

// mergeInto unmarshals raw over an existing value, so only the fields
// present in raw change.
func mergeInto(raw json.RawMessage, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	return nil
}
