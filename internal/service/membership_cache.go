package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/model"
	"github.com/XronosSchedulingLtd/scheduler-sub003/internal/repository"
)

// ── 成员展开缓存 ──────────────────────────────────────────────
//
// 职责：把群组按 as-of 日期展开为原子资源集合，并在单日处理过程中记忆结果。
//
// 设计决策：
//   - 生命周期严格限定为一天的处理循环，每天新建实例；跨天复用会让
//     成员关系的生效日期判定失真，属于正确性缺陷
//   - 先并入所有非排除成员（嵌套群组递归展开），再减去排除型（inverse）成员
//   - 悬空群组引用展开为空集并记 debug 日志，不作为错误上抛
//   - 显式作为参数传递，不做任何包级/全局状态
// ─────────────────────────────────────────────────────────────

// MembershipCache 单日范围的群组成员展开缓存
type MembershipCache struct {
	groups    repository.GroupRepository
	resources repository.ResourceRepository
	logger    *zap.Logger
	date      time.Time

	expanded map[string]map[string]model.ResourceKind // groupID → 原子资源集合
	upward   map[string][]string                      // resourceID → 所属群组闭包
	kinds    map[string]model.ResourceKind            // resourceID → 类型
}

// NewMembershipCache 创建指定日期的成员展开缓存
func NewMembershipCache(
	groups repository.GroupRepository,
	resources repository.ResourceRepository,
	date time.Time,
	logger *zap.Logger,
) *MembershipCache {
	return &MembershipCache{
		groups:    groups,
		resources: resources,
		logger:    logger,
		date:      date,
		expanded:  make(map[string]map[string]model.ResourceKind),
		upward:    make(map[string][]string),
		kinds:     make(map[string]model.ResourceKind),
	}
}

// Date 返回缓存绑定的处理日期
func (c *MembershipCache) Date() time.Time { return c.date }

// AtomicResources 把元素展开为原子资源集合（resourceID → 类型）
//   - 原子资源：单元素集合
//   - 群组：按缓存日期解析有效成员，递归展开嵌套群组，再减去排除型成员
func (c *MembershipCache) AtomicResources(ctx context.Context, elementType, elementID string) (map[string]model.ResourceKind, error) {
	if elementType == model.ElementResource {
		kind, err := c.resourceKind(ctx, elementID)
		if err != nil {
			return nil, err
		}
		if kind == "" {
			return map[string]model.ResourceKind{}, nil
		}
		return map[string]model.ResourceKind{elementID: kind}, nil
	}
	return c.expandGroup(ctx, elementID, make(map[string]bool))
}

// expandGroup 展开单个群组，visited 防止嵌套群组成环导致的无限递归
func (c *MembershipCache) expandGroup(ctx context.Context, groupID string, visited map[string]bool) (map[string]model.ResourceKind, error) {
	if cached, ok := c.expanded[groupID]; ok {
		return cached, nil
	}
	if visited[groupID] {
		c.logger.Warn("群组成员关系存在环，跳过重复展开", zap.String("group_id", groupID))
		return map[string]model.ResourceKind{}, nil
	}
	visited[groupID] = true

	result := make(map[string]model.ResourceKind)

	group, err := c.groups.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 悬空引用：展开为空集，该群组不参与冲突计算
			c.logger.Debug("群组引用悬空，按空集处理", zap.String("group_id", groupID))
			c.expanded[groupID] = result
			return result, nil
		}
		return nil, err
	}
	if !group.ActiveOn(c.date) {
		c.expanded[groupID] = result
		return result, nil
	}

	memberships, err := c.groups.ListMemberships(ctx, groupID, c.date)
	if err != nil {
		return nil, err
	}

	// 第一遍：并入所有包含型成员
	for _, m := range memberships {
		if m.Inverse {
			continue
		}
		atoms, err := c.expandElement(ctx, m.ElementType, m.ElementID, visited)
		if err != nil {
			return nil, err
		}
		for id, kind := range atoms {
			result[id] = kind
		}
	}

	// 第二遍：减去排除型成员
	for _, m := range memberships {
		if !m.Inverse {
			continue
		}
		atoms, err := c.expandElement(ctx, m.ElementType, m.ElementID, visited)
		if err != nil {
			return nil, err
		}
		for id := range atoms {
			delete(result, id)
		}
	}

	c.expanded[groupID] = result
	return result, nil
}

func (c *MembershipCache) expandElement(ctx context.Context, elementType, elementID string, visited map[string]bool) (map[string]model.ResourceKind, error) {
	if elementType == model.ElementGroup {
		return c.expandGroup(ctx, elementID, visited)
	}
	kind, err := c.resourceKind(ctx, elementID)
	if err != nil {
		return nil, err
	}
	if kind == "" {
		return map[string]model.ResourceKind{}, nil
	}
	return map[string]model.ResourceKind{elementID: kind}, nil
}

// resourceKind 解析资源类型并记忆；悬空资源引用返回空串
func (c *MembershipCache) resourceKind(ctx context.Context, resourceID string) (model.ResourceKind, error) {
	if kind, ok := c.kinds[resourceID]; ok {
		return kind, nil
	}
	resource, err := c.resources.GetByID(ctx, resourceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.logger.Debug("资源引用悬空，忽略", zap.String("resource_id", resourceID))
			c.kinds[resourceID] = ""
			return "", nil
		}
		return "", err
	}
	c.kinds[resourceID] = resource.Kind
	return resource.Kind, nil
}

// GroupsFor 返回资源在缓存日期所属群组的传递闭包
// 候选群组来自向上查找；只有当群组的向下展开确实包含该资源时才计入，
// 这样排除型成员关系在两个方向上保持一致
func (c *MembershipCache) GroupsFor(ctx context.Context, resourceID string) ([]string, error) {
	if cached, ok := c.upward[resourceID]; ok {
		return cached, nil
	}

	candidates := make(map[string]bool)
	queue := []struct{ elementType, elementID string }{{model.ElementResource, resourceID}}
	seen := make(map[string]bool)

	for len(queue) > 0 {
		head := queue[0]
		queue = queue[1:]

		memberships, err := c.groups.ListMembershipsForElement(ctx, head.elementType, head.elementID, c.date)
		if err != nil {
			return nil, err
		}
		for _, m := range memberships {
			if m.Inverse {
				// 排除型关系不能作为归属路径
				continue
			}
			if seen[m.GroupID] {
				continue
			}
			seen[m.GroupID] = true
			candidates[m.GroupID] = true
			queue = append(queue, struct{ elementType, elementID string }{model.ElementGroup, m.GroupID})
		}
	}

	var result []string
	for groupID := range candidates {
		atoms, err := c.expandGroup(ctx, groupID, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		if _, ok := atoms[resourceID]; ok {
			result = append(result, groupID)
		}
	}

	c.upward[resourceID] = result
	return result, nil
}
