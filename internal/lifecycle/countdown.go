package lifecycle

import (
	"fmt"
	"time"

	"github.com/Dhoini/attendance-service/internal/domain"
)

// HasActiveSubscription выводится из записи и текущего времени.
// Флаг active после даты истечения не учитывается.
func HasActiveSubscription(sub domain.Subscription, now time.Time) bool {
	return sub.IsLive(now)
}

// Remaining оставшееся время в виде отображаемых полей
type Remaining struct {
	Days    int
	Hours   int
	Minutes int
	Seconds int
}

// Zero true, когда время вышло
func (r Remaining) Zero() bool {
	return r.Days == 0 && r.Hours == 0 && r.Minutes == 0 && r.Seconds == 0
}

// Total возвращает длительность, которую представляют поля
func (r Remaining) Total() time.Duration {
	return time.Duration(r.Days)*24*time.Hour +
		time.Duration(r.Hours)*time.Hour +
		time.Duration(r.Minutes)*time.Minute +
		time.Duration(r.Seconds)*time.Second
}

func (r Remaining) String() string {
	return fmt.Sprintf("%dd %02dh %02dm %02ds", r.Days, r.Hours, r.Minutes, r.Seconds)
}

// Countdown раскладывает оставшееся время на поля. Дробная секунда
// округляется вверх, поэтому ноль наступает ровно в момент истечения.
//
// Если секунды равны нулю при ненулевых старших полях, секунды занимают
// минуту (60), минуты при нехватке занимают час, часы занимают день:
// 86400s -> 0d 23h 59m 60s.
func Countdown(d time.Duration) Remaining {
	if d <= 0 {
		return Remaining{}
	}

	total := int64(d / time.Second)
	if d%time.Second != 0 {
		total++
	}

	r := Remaining{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}

	if r.Seconds == 0 {
		r.Seconds = 60
		r.Minutes--
		if r.Minutes < 0 {
			r.Minutes = 59
			r.Hours--
			if r.Hours < 0 {
				r.Hours = 23
				r.Days--
			}
		}
	}
	return r
}
