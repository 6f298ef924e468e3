// Package reconcile 把新抓取的快照与已持久化的集合做软删除式对账。
package reconcile

// Action 单个自然键的对账结果；每个键恰好对应一种
type Action int

const (
	// ActionCreate 快照中有、存储中没有
	ActionCreate Action = iota + 1
	// ActionReactivate 快照中有、存储中已软删除
	ActionReactivate
	// ActionUnchanged 快照中有、存储中有效
	ActionUnchanged
	// ActionSoftDelete 快照中没有、存储中有效且在范围内
	ActionSoftDelete
	// ActionProtected 快照中没有、存储中有效但不在本次范围内
	ActionProtected
	// ActionDormant 快照中没有、存储中已软删除
	ActionDormant
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionReactivate:
		return "reactivate"
	case ActionUnchanged:
		return "unchanged"
	case ActionSoftDelete:
		return "soft_delete"
	case ActionProtected:
		return "protected"
	case ActionDormant:
		return "dormant"
	}
	return "unknown"
}

// Spec 某一实体类型的对账规则
type Spec[K comparable, E any, I any] struct {
	ExistingKey func(E) K
	IncomingKey func(I) K
	Available   func(E) bool
	// InScope 限定哪些有效记录可被软删除；nil 表示全部
	InScope func(E) bool
	// New 由快照项构造新实体（此时分配标识）
	New func(I) E
}

// Plan 对账计划
type Plan[K comparable, E any] struct {
	Create     []E
	Reactivate []E
	SoftDelete []E
	Unchanged  []E
	Protected  []E
	// Actions existing ∪ incoming 中每个键恰好一项
	Actions map[K]Action
}

// Empty 计划是否不需要任何写操作
func (p Plan[K, E]) Empty() bool {
	return len(p.Create) == 0 && len(p.Reactivate) == 0 && len(p.SoftDelete) == 0
}

// Diff 计算对账计划
// 快照中重复的键只取第一次出现；存储中重复的键优先取有效记录。
// 输出顺序：Create/Reactivate/Unchanged 按快照顺序，其余按存储顺序。
func Diff[K comparable, E any, I any](existing []E, incoming []I, spec Spec[K, E, I]) Plan[K, E] {
	plan := Plan[K, E]{Actions: make(map[K]Action, len(existing)+len(incoming))}

	index := make(map[K]E, len(existing))
	order := make([]K, 0, len(existing))
	for _, e := range existing {
		k := spec.ExistingKey(e)
		prev, seen := index[k]
		if !seen {
			order = append(order, k)
			index[k] = e
			continue
		}
		if !spec.Available(prev) && spec.Available(e) {
			index[k] = e
		}
	}

	for _, in := range incoming {
		k := spec.IncomingKey(in)
		if _, done := plan.Actions[k]; done {
			continue
		}
		e, ok := index[k]
		switch {
		case !ok:
			plan.Actions[k] = ActionCreate
			plan.Create = append(plan.Create, spec.New(in))
		case spec.Available(e):
			plan.Actions[k] = ActionUnchanged
			plan.Unchanged = append(plan.Unchanged, e)
		default:
			plan.Actions[k] = ActionReactivate
			plan.Reactivate = append(plan.Reactivate, e)
		}
	}

	for _, k := range order {
		if _, done := plan.Actions[k]; done {
			continue
		}
		e := index[k]
		switch {
		case !spec.Available(e):
			plan.Actions[k] = ActionDormant
		case spec.InScope == nil || spec.InScope(e):
			plan.Actions[k] = ActionSoftDelete
			plan.SoftDelete = append(plan.SoftDelete, e)
		default:
			plan.Actions[k] = ActionProtected
			plan.Protected = append(plan.Protected, e)
		}
	}

	return plan
}
