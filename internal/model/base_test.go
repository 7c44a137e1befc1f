package model

import (
	"testing"
	"time"
)

func interval(startHour, startMin, endHour, endMin int) TimeInterval {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	return TimeInterval{
		StartsAt: day.Add(time.Duration(startHour)*time.Hour + time.Duration(startMin)*time.Minute),
		EndsAt:   day.Add(time.Duration(endHour)*time.Hour + time.Duration(endMin)*time.Minute),
	}
}

func TestTimeInterval_Overlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b TimeInterval
		want bool
	}{
		{"部分重叠", interval(9, 0, 10, 0), interval(9, 30, 10, 30), true},
		{"完全包含", interval(9, 0, 12, 0), interval(10, 0, 11, 0), true},
		{"完全相同", interval(9, 0, 10, 0), interval(9, 0, 10, 0), true},
		{"端点相接不算重叠", interval(9, 0, 10, 0), interval(10, 0, 11, 0), false},
		{"完全分离", interval(9, 0, 10, 0), interval(14, 0, 15, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Overlaps(tc.b); got != tc.want {
				t.Errorf("Overlaps 期望 %v，实际=%v", tc.want, got)
			}
			// 重叠关系对称
			if got := tc.b.Overlaps(tc.a); got != tc.want {
				t.Errorf("反向 Overlaps 期望 %v，实际=%v", tc.want, got)
			}
		})
	}
}

func TestTimeInterval_OverlapsWindow(t *testing.T) {
	iv := interval(9, 0, 10, 0)
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)

	if !iv.OverlapsWindow(day, day.AddDate(0, 0, 1)) {
		t.Error("区间应与所在日的全天窗口重叠")
	}
	if iv.OverlapsWindow(day.Add(10*time.Hour), day.AddDate(0, 0, 1)) {
		t.Error("窗口起点等于区间终点时不应重叠")
	}
}

func TestTimeInterval_Valid(t *testing.T) {
	if !interval(9, 0, 10, 0).Valid() {
		t.Error("正常区间应合法")
	}
	if interval(9, 0, 9, 0).Valid() {
		t.Error("零长度区间不合法")
	}
	if interval(10, 0, 9, 0).Valid() {
		t.Error("终点早于起点的区间不合法")
	}
}

func TestMembership_ActiveOn(t *testing.T) {
	day := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	end := day.AddDate(0, 0, 7)
	m := Membership{StartsOn: day, EndsOn: &end}

	if m.ActiveOn(day.AddDate(0, 0, -1)) {
		t.Error("生效日前不应有效")
	}
	if !m.ActiveOn(day) {
		t.Error("生效当日应有效")
	}
	if !m.ActiveOn(end) {
		t.Error("失效当日仍应有效（含端点）")
	}
	if m.ActiveOn(end.AddDate(0, 0, 1)) {
		t.Error("失效日后不应有效")
	}

	open := Membership{StartsOn: day}
	if !open.ActiveOn(day.AddDate(1, 0, 0)) {
		t.Error("无失效日期的成员关系应长期有效")
	}
}

func TestMembership_ActiveOn_LocalTimezone(t *testing.T) {
	// 生效日期按 UTC 存储，扫描日期来自本地时钟：
	// 东区时区的本地零点不得折算到前一个日历日
	bst := time.FixedZone("BST", 3600)
	start := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	m := Membership{StartsOn: start}

	localMidnight := time.Date(2026, 6, 10, 0, 0, 0, 0, bst)
	if !m.ActiveOn(localMidnight) {
		t.Errorf("成员关系应在生效首日 %s 激活，实际判定为未生效", localMidnight.Format("2006-01-02"))
	}
	if m.ActiveOn(time.Date(2026, 6, 9, 0, 0, 0, 0, bst)) {
		t.Error("生效日前一天不应判为有效")
	}

	end := start.AddDate(0, 0, 7)
	bounded := Membership{StartsOn: start, EndsOn: &end}
	if !bounded.ActiveOn(time.Date(2026, 6, 17, 0, 0, 0, 0, bst)) {
		t.Error("失效当日（本地零点）仍应有效")
	}
}

func TestGroup_ActiveOn_LocalTimezone(t *testing.T) {
	bst := time.FixedZone("BST", 3600)
	g := Group{StartsOn: time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)}

	if !g.ActiveOn(time.Date(2026, 6, 10, 0, 0, 0, 0, bst)) {
		t.Error("群组应在生效首日（本地零点）有效")
	}
	if g.ActiveOn(time.Date(2026, 6, 9, 23, 0, 0, 0, bst)) {
		t.Error("生效日前不应有效")
	}
}
