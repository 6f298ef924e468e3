package model

import (
	"testing"
	"time"
)

func TestStringArray_ScanValue(t *testing.T) {
	var a StringArray
	if err := a.Scan([]byte(`{"a1",b2}`)); err != nil {
		t.Fatalf("Scan 应成功: %v", err)
	}
	if len(a) != 2 || a[0] != "a1" || a[1] != "b2" {
		t.Errorf("期望 [a1 b2], 实际=%v", a)
	}

	v, err := a.Value()
	if err != nil {
		t.Fatalf("Value 应成功: %v", err)
	}
	if v != "{a1,b2}" {
		t.Errorf("期望 {a1,b2}, 实际=%v", v)
	}

	if err := a.Scan("{}"); err != nil || len(a) != 0 {
		t.Errorf("空数组应解析为空切片, 实际=%v err=%v", a, err)
	}
	if err := a.Scan(nil); err != nil || a != nil {
		t.Errorf("NULL 应解析为 nil")
	}
	if err := a.Scan(42); err == nil {
		t.Error("不支持的类型应返回错误")
	}

	var empty StringArray
	if v, _ := empty.Value(); v != "{}" {
		t.Errorf("nil 应写入空数组, 实际=%v", v)
	}
}

func TestStringArray_Equal(t *testing.T) {
	if !(StringArray{"a", "b"}).Equal(StringArray{"a", "b"}) {
		t.Error("相同顺序应相等")
	}
	if (StringArray{"a", "b"}).Equal(StringArray{"b", "a"}) {
		t.Error("顺序不同应不相等")
	}
}

func TestDateArray_ScanValue(t *testing.T) {
	var a DateArray
	if err := a.Scan("{2025-09-22,2025-10-13}"); err != nil {
		t.Fatalf("Scan 应成功: %v", err)
	}
	want := time.Date(2025, 9, 22, 0, 0, 0, 0, time.UTC)
	if len(a) != 2 || !a[0].Equal(want) {
		t.Errorf("期望首项 %v, 实际=%v", want, a)
	}
	v, _ := a.Value()
	if v != "{2025-09-22,2025-10-13}" {
		t.Errorf("序列化结果不符: %v", v)
	}
	if err := a.Scan("{2025-13-40}"); err == nil {
		t.Error("非法日期应返回错误")
	}
}

func TestScheduleKey_IgnoresLocation(t *testing.T) {
	zurich, err := time.LoadLocation("Europe/Zurich")
	if err != nil {
		t.Skip("缺少时区数据")
	}
	start := time.Date(2025, 10, 1, 8, 0, 0, 0, zurich)
	end := start.Add(2 * time.Hour)

	a := CourseSchedule{CourseID: "c", StartDatetime: start, EndDatetime: end, Label: LabelCours}
	b := CourseSchedule{CourseID: "c", StartDatetime: start.UTC(), EndDatetime: end.UTC(), Label: LabelCours}
	if a.Key() != b.Key() {
		t.Error("同一时刻不同时区表示应得到相同自然键")
	}
}
