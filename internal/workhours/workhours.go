// Package workhours считает время, прошедшее между двумя моментами
// внутри рабочего окна дня. Ночные часы не учитываются, выходных нет:
// каждый календарный день содержит одно окно [WorkStart, WorkEnd).
package workhours

import "time"

const (
	DefaultWorkStartHour = 9
	DefaultWorkEndHour   = 21
)

type Calculator struct {
	WorkStartHour int
	WorkEndHour   int
}

// New возвращает калькулятор с окном 09:00–21:00.
func New() Calculator {
	return Calculator{
		WorkStartHour: DefaultWorkStartHour,
		WorkEndHour:   DefaultWorkEndHour,
	}
}

// Elapsed возвращает рабочее время между start и end.
// Второе значение false, если какой-то из моментов не задан (нулевой)
// или end раньше start — тогда длительность не определена.
//
// Алгоритм: курсор идёт вперёд от start. Внутри окна накапливается
// перекрытие до min(end, конец окна дня); до окна — прыжок к началу окна
// этого дня; после окна — к началу окна следующего дня. Курсор строго
// растёт на каждом шаге, поэтому цикл конечен.
func (c Calculator) Elapsed(start, end time.Time) (time.Duration, bool) {
	if start.IsZero() || end.IsZero() {
		return 0, false
	}
	if end.Before(start) {
		return 0, false
	}

	var total time.Duration
	cursor := start

	for cursor.Before(end) {
		hour := cursor.Hour()

		if hour >= c.WorkStartHour && hour < c.WorkEndHour {
			windowEnd := atHour(cursor, c.WorkEndHour)
			periodEnd := windowEnd
			if end.Before(windowEnd) {
				periodEnd = end
			}
			total += periodEnd.Sub(cursor)
			cursor = periodEnd
		} else if hour < c.WorkStartHour {
			cursor = atHour(cursor, c.WorkStartHour)
		} else {
			cursor = atHour(cursor.AddDate(0, 0, 1), c.WorkStartHour)
		}
	}

	return total, true
}

func atHour(t time.Time, hour int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
}
