package odoo

import "time"

// GST — таймзона терминалов (UTC+4), как в intermodal-части исходной
// системы. Дашборды "сегодня/эта неделя" считаются в ней.
var GST = time.FixedZone("GST", 4*3600)

// Odoo хранит datetime строками в этом формате.
const TimeLayout = "2006-01-02 15:04:05"

func FormatTime(t time.Time) string { return t.Format(TimeLayout) }

// ParseTime разбирает naive-datetime Odoo в той же зоне, в которой
// строятся окна дашборда, чтобы сравнения были консистентны.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, GST)
}

// WeekStarts — начала прошлой и текущей недель (понедельник 00:00)
// относительно now.
func WeekStarts(now time.Time) (lastWeek, currentWeek time.Time) {
	y, m, d := now.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	// time.Weekday: Sunday=0; дней с понедельника — со сдвигом.
	sinceMonday := (int(midnight.Weekday()) + 6) % 7
	currentWeek = midnight.AddDate(0, 0, -sinceMonday)
	lastWeek = currentWeek.AddDate(0, 0, -7)
	return lastWeek, currentWeek
}

// TodayRange — границы сегодняшнего дня [00:00:00, 23:59:59].
func TodayRange(now time.Time) (start, end time.Time) {
	y, m, d := now.Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	end = time.Date(y, m, d, 23, 59, 59, 0, now.Location())
	return start, end
}
