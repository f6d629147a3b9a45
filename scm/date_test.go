/*
Copyright (C) 2025  Carl-Philip Hänsch

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
	"strings"
	"testing"
	"time"
)

// 2021-03-04 05:06:07 UTC
const sampleStamp = 1614834367

// 2021-03-04 00:00:00 UTC
const sampleMidnight = 1614816000

func TestParseDate(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(parse-date "2021-03-04 05:06:07")`), sampleStamp)
	wantInt(t, evalStr(t, en, `(parse-date "2021-03-04")`), sampleMidnight)
	wantInt(t, evalStr(t, en, `(parse-date "21-03-04")`), sampleMidnight)
	// timestamps pass through
	wantInt(t, evalStr(t, en, `(parse-date 42)`), 42)
	wantBool(t, evalStr(t, en, `(nil? (parse-date "not a date"))`), true)
}

func TestFormatDate(t *testing.T) {
	en := testEnv()
	wantString(t, evalStr(t, en, `(format-date 1614834367 "%Y-%m-%d %H:%i:%s")`), "2021-03-04 05:06:07")
	wantString(t, evalStr(t, en, `(format-date 1614834367 "%T")`), "05:06:07")
	wantString(t, evalStr(t, en, `(format-date 0 "100%%")`), "100%")
	// unknown specifiers pass through
	wantString(t, evalStr(t, en, `(format-date 0 "%q")`), "%q")
	// datetime strings are accepted as input
	wantString(t, evalStr(t, en, `(format-date "2021-03-04" "%d.%m.%Y")`), "04.03.2021")
	wantBool(t, evalStr(t, en, `(nil? (format-date '() "%Y"))`), true)
}

func TestStringToDate(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(string->date "04.03.2021" "%d.%m.%Y")`), sampleMidnight)
	wantString(t, evalStr(t, en, `(format-date (string->date "2021/03/04" "%Y/%m/%d") "%Y-%m-%d")`), "2021-03-04")
	wantBool(t, evalStr(t, en, `(nil? (string->date "xx" "%Y"))`), true)
}

func TestExtractDate(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "YEAR")`), 2021)
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "MONTH")`), 3)
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "DAY")`), 4)
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "HOUR")`), 5)
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "MINUTE")`), 6)
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "SECOND")`), 7)
	// field names fold case
	wantInt(t, evalStr(t, en, `(extract-date 1614834367 "year")`), 2021)
	cause, ok := evalPanic(t, en, `(extract-date 1614834367 "EPOCH")`).(string)
	if !ok || !strings.HasPrefix(cause, "unknown extract-date field") {
		t.Fatalf("unknown field should be rejected, got %v", cause)
	}
}

func TestDateAddSub(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(date-add 1614816000 1 "DAY")`), sampleMidnight+86400)
	wantInt(t, evalStr(t, en, `(date-add 1614816000 2 "HOUR")`), sampleMidnight+7200)
	wantInt(t, evalStr(t, en, `(date-sub 1614816000 1 "WEEK")`), sampleMidnight-7*86400)
	// calendar months keep the day of month
	wantString(t, evalStr(t, en, `(format-date (date-add 1614816000 1 "MONTH") "%Y-%m-%d")`), "2021-04-04")
	wantString(t, evalStr(t, en, `(format-date (date-add 1614816000 1 "YEAR") "%Y-%m-%d")`), "2022-03-04")
	cause, ok := evalPanic(t, en, `(date-add 0 1 "FORTNIGHT")`).(string)
	if !ok || !strings.HasPrefix(cause, "unknown date-add unit") {
		t.Fatalf("unknown unit should be rejected, got %v", cause)
	}
}

func TestDateTruncDay(t *testing.T) {
	en := testEnv()
	wantInt(t, evalStr(t, en, `(date-trunc-day 1614834367)`), sampleMidnight)
	wantInt(t, evalStr(t, en, `(date-trunc-day "2021-03-04 05:06:07")`), sampleMidnight)
}

func TestClockBuiltins(t *testing.T) {
	en := testEnv()
	before := time.Now().Unix()
	got := evalStr(t, en, `(now)`)
	after := time.Now().Unix()
	if got.GetTag() != tagInt || got.Int() < before || got.Int() > after {
		t.Fatalf("now out of range: %s not in [%d, %d]", Repr(got), before, after)
	}
	beforeMs := time.Now().UnixMilli()
	gotMs := evalStr(t, en, `(current-milliseconds)`)
	afterMs := time.Now().UnixMilli()
	if gotMs.GetTag() != tagInt || gotMs.Int() < beforeMs || gotMs.Int() > afterMs {
		t.Fatalf("current-milliseconds out of range: %s", Repr(gotMs))
	}
	// current-date is today at midnight UTC
	day := evalStr(t, en, `(current-date)`)
	nowUTC := time.Now().UTC()
	midnight := time.Date(nowUTC.Year(), nowUTC.Month(), nowUTC.Day(), 0, 0, 0, 0, time.UTC).Unix()
	if day.Int() != midnight && day.Int() != midnight-86400 {
		t.Fatalf("current-date %d does not match today %d", day.Int(), midnight)
	}
}
