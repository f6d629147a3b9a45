/*
Copyright (C) 2024-2025  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package scm

import (
	"fmt"
	"strings"
	"time"
)

// Dates are plain Unix timestamps (integers). The builtins accept ints,
// floats and parseable strings interchangeably.

var allowedDateFormats = []string{
	"2006-01-02 15:04:05.000000",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"06-01-02 15:04:05.000000",
	"06-01-02 15:04:05",
	"06-01-02 15:04",
	"06-01-02",
}

// ParseDateString tries to parse a date/datetime string using the allowed formats.
// Returns the Unix timestamp and true on success, or 0 and false on failure.
func ParseDateString(s string) (int64, bool) {
	for _, format := range allowedDateFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t.Unix(), true
		}
	}
	return 0, false
}

// toTime converts a timestamp, float, or datetime string to time.Time.
func toTime(v Scmer) (time.Time, bool) {
	v = stripSource(v)
	switch v.GetTag() {
	case tagNil, tagVoid:
		return time.Time{}, false
	case tagInt, tagBigInt:
		return time.Unix(v.Int(), 0).UTC(), true
	case tagFloat, tagRational:
		return time.Unix(int64(v.Float()), 0).UTC(), true
	case tagString, tagSymbol:
		if ts, ok := ParseDateString(v.String()); ok {
			return time.Unix(ts, 0).UTC(), true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

func init_date() {
	DeclareTitle("Date")

	Declare(&Globalenv, &Declaration{
		"now", "returns the current time as a Unix timestamp",
		0, 0,
		[]DeclarationParameter{}, "int",
		func(a ...Scmer) Scmer {
			return NewInt(time.Now().Unix())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"current-milliseconds", "returns the current time in milliseconds since the Unix epoch",
		0, 0,
		[]DeclarationParameter{}, "int",
		func(a ...Scmer) Scmer {
			return NewInt(time.Now().UnixMilli())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"current-date", "returns the current date truncated to midnight UTC",
		0, 0,
		[]DeclarationParameter{}, "int",
		func(a ...Scmer) Scmer {
			now := time.Now().UTC()
			midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
			return NewInt(midnight.Unix())
		}, false,
	})
	Declare(&Globalenv, &Declaration{
		"parse-date", "parses a date from a string; nil when it does not parse",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "datetime string, timestamp passes through"},
		}, "any",
		func(a ...Scmer) Scmer {
			v := stripSource(a[0])
			if v.IsNil() {
				return NewNil()
			}
			if v.IsInt() || v.IsFloat() {
				return NewInt(v.Int())
			}
			if ts, ok := ParseDateString(String(v)); ok {
				return NewInt(ts)
			}
			return NewNil()
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"format-date", "formats a timestamp or datetime string with %-style specifiers (e.g. %Y-%m-%d %H:%i:%s)",
		2, 2,
		[]DeclarationParameter{
			{"timestamp", "any", "unix timestamp or datetime string"},
			{"format", "string", "format string with %Y %m %d %H %i %s %T"},
		}, "string",
		func(a ...Scmer) Scmer {
			if stripSource(a[0]).IsNil() {
				return NewNil()
			}
			t, ok := toTime(a[0])
			if !ok {
				return NewNil()
			}
			format := String(a[1])
			// expand the specifiers by hand; Go reference-time magic numbers could collide with literal text
			var buf strings.Builder
			for i := 0; i < len(format); i++ {
				if format[i] == '%' && i+1 < len(format) {
					switch format[i+1] {
					case 'Y':
						buf.WriteString(fmt.Sprintf("%04d", t.Year()))
					case 'm':
						buf.WriteString(fmt.Sprintf("%02d", t.Month()))
					case 'd':
						buf.WriteString(fmt.Sprintf("%02d", t.Day()))
					case 'H':
						buf.WriteString(fmt.Sprintf("%02d", t.Hour()))
					case 'i':
						buf.WriteString(fmt.Sprintf("%02d", t.Minute()))
					case 's':
						buf.WriteString(fmt.Sprintf("%02d", t.Second()))
					case 'T':
						buf.WriteString(fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second()))
					case '%':
						buf.WriteByte('%')
					default:
						buf.WriteByte('%')
						buf.WriteByte(format[i+1])
					}
					i++ // skip format char
				} else {
					buf.WriteByte(format[i])
				}
			}
			return NewString(buf.String())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"extract-date", "extracts a field (YEAR, MONTH, DAY, HOUR, MINUTE, SECOND) from a date value",
		2, 2,
		[]DeclarationParameter{
			{"value", "any", "date value"},
			{"field", "string", "field name: YEAR, MONTH, DAY, HOUR, MINUTE, SECOND"},
		}, "int",
		func(a ...Scmer) Scmer {
			if stripSource(a[0]).IsNil() {
				return NewNil()
			}
			t, ok := toTime(a[0])
			if !ok {
				return NewNil()
			}
			field := strings.ToUpper(String(a[1]))
			switch field {
			case "YEAR":
				return NewInt(int64(t.Year()))
			case "MONTH":
				return NewInt(int64(t.Month()))
			case "DAY":
				return NewInt(int64(t.Day()))
			case "HOUR":
				return NewInt(int64(t.Hour()))
			case "MINUTE":
				return NewInt(int64(t.Minute()))
			case "SECOND":
				return NewInt(int64(t.Second()))
			default:
				panic("unknown extract-date field: " + field)
			}
		}, true,
	})
	dateShift := func(op string, sign int) func(a ...Scmer) Scmer {
		return func(a ...Scmer) Scmer {
			if stripSource(a[0]).IsNil() {
				return NewNil()
			}
			t, ok := toTime(a[0])
			if !ok {
				return NewNil()
			}
			amount := sign * int(ToInt(a[1]))
			unit := strings.ToUpper(String(a[2]))
			switch unit {
			case "SECOND":
				t = t.Add(time.Duration(amount) * time.Second)
			case "MINUTE":
				t = t.Add(time.Duration(amount) * time.Minute)
			case "HOUR":
				t = t.Add(time.Duration(amount) * time.Hour)
			case "DAY":
				t = t.AddDate(0, 0, amount)
			case "WEEK":
				t = t.AddDate(0, 0, amount*7)
			case "MONTH":
				t = t.AddDate(0, amount, 0)
			case "YEAR":
				t = t.AddDate(amount, 0, 0)
			default:
				panic("unknown " + op + " unit: " + unit)
			}
			return NewInt(t.Unix())
		}
	}
	Declare(&Globalenv, &Declaration{
		"date-add", "adds an interval to a date value",
		3, 3,
		[]DeclarationParameter{
			{"value", "any", "date value"},
			{"amount", "int", "interval amount"},
			{"unit", "string", "interval unit: DAY, WEEK, MONTH, YEAR, HOUR, MINUTE, SECOND"},
		}, "int",
		dateShift("date-add", 1), true,
	})
	Declare(&Globalenv, &Declaration{
		"date-sub", "subtracts an interval from a date value",
		3, 3,
		[]DeclarationParameter{
			{"value", "any", "date value"},
			{"amount", "int", "interval amount"},
			{"unit", "string", "interval unit: DAY, WEEK, MONTH, YEAR, HOUR, MINUTE, SECOND"},
		}, "int",
		dateShift("date-sub", -1), true,
	})
	Declare(&Globalenv, &Declaration{
		"date-trunc-day", "truncates a datetime to its date (midnight UTC)",
		1, 1,
		[]DeclarationParameter{
			{"value", "any", "date/datetime value"},
		}, "int",
		func(a ...Scmer) Scmer {
			if stripSource(a[0]).IsNil() {
				return NewNil()
			}
			t, ok := toTime(a[0])
			if !ok {
				return NewNil()
			}
			midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return NewInt(midnight.Unix())
		}, true,
	})
	Declare(&Globalenv, &Declaration{
		"string->date", "parses a string with %-style format specifiers to a date",
		2, 2,
		[]DeclarationParameter{
			{"value", "string", "date string"},
			{"format", "string", "format string (e.g. %Y-%m-%d)"},
		}, "any",
		func(a ...Scmer) Scmer {
			if stripSource(a[0]).IsNil() {
				return NewNil()
			}
			goFmt := dateFormatToGo(String(a[1]))
			if t, err := time.Parse(goFmt, String(a[0])); err == nil {
				return NewInt(t.Unix())
			}
			return NewNil()
		}, true,
	})
}

// dateFormatToGo converts a %-style date format string to a Go time layout.
func dateFormatToGo(format string) string {
	var buf strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] == '%' && i+1 < len(format) {
			switch format[i+1] {
			case 'Y':
				buf.WriteString("2006")
			case 'y':
				buf.WriteString("06")
			case 'm':
				buf.WriteString("01")
			case 'd':
				buf.WriteString("02")
			case 'H':
				buf.WriteString("15")
			case 'i':
				buf.WriteString("04")
			case 's':
				buf.WriteString("05")
			case '%':
				buf.WriteByte('%')
			default:
				buf.WriteByte(format[i+1])
			}
			i++
		} else {
			buf.WriteByte(format[i])
		}
	}
	return buf.String()
}
