package services

import (
	"context"
	"math"
	"regexp"
	"strings"

	"go_draft_backend/models"
	"go_draft_backend/pkg/logging"
)

var (
	reAbstract = regexp.MustCompile(`摘要|Abstract`)
	reNoBudget = regexp.MustCompile(`参考文献|致谢`)
)

// WordPlanner 远端智能字数规划
type WordPlanner interface {
	PlanWordCount(ctx context.Context, totalWords int, leafTitles []string) (map[string]models.LeafPlan, error)
}

type BudgetService struct {
	planner WordPlanner
}

func NewBudgetService(planner WordPlanner) *BudgetService {
	return &BudgetService{planner: planner}
}

// DistributeLocal 本地启发式分配：摘要固定 400 并计入保留额，
// 参考文献/致谢不占预算，剩余叶子均分后取 50 的整数倍、下限 200。
func (s *BudgetService) DistributeLocal(structure models.ParsedStructure, totalTarget int) {
	reserved := 0
	var activeLeaves []*models.OutlineItem

	for _, group := range structure {
		for _, child := range group.Children {
			if child.IsParent {
				continue
			}
			switch {
			case reAbstract.MatchString(child.Text):
				child.Words = 400
				reserved += 400
			case reNoBudget.MatchString(child.Text):
				child.Words = 0
			default:
				activeLeaves = append(activeLeaves, child)
			}
		}
	}

	n := len(activeLeaves)
	if n == 0 {
		n = 1
	}
	remaining := totalTarget - reserved
	if remaining < 0 {
		remaining = 0
	}
	avg := int(math.Round(float64(remaining/n)/50.0) * 50)
	if avg < 200 {
		avg = 200
	}
	for _, leaf := range activeLeaves {
		leaf.Words = avg
	}
}

// DistributeSmart 远端建议分配。参考文献/致谢仍然清零并排除；
// 返回的 map 先精确匹配标题，再双向包含模糊匹配；没匹配到的叶子
// 拿 floor(total/n) 保底。远端失败时整体回退为不取整的均分。
func (s *BudgetService) DistributeSmart(ctx context.Context, structure models.ParsedStructure, totalTarget int) error {
	var activeLeaves []*models.OutlineItem
	var leafTitles []string

	for _, group := range structure {
		for _, child := range group.Children {
			if child.IsParent {
				continue
			}
			if reNoBudget.MatchString(child.Text) {
				child.Words = 0
				continue
			}
			activeLeaves = append(activeLeaves, child)
			leafTitles = append(leafTitles, child.Text)
		}
	}
	if len(leafTitles) == 0 {
		return ErrNoWritableLeaves
	}

	plan, err := s.planner.PlanWordCount(ctx, totalTarget, leafTitles)
	if err != nil {
		logging.Logger.Error("fail DistributeSmart, fallback to even split", "error", err)
		avg := totalTarget / len(activeLeaves)
		for _, leaf := range activeLeaves {
			leaf.Words = avg
		}
		return err
	}

	for _, leaf := range activeLeaves {
		config, ok := plan[leaf.Text]
		if !ok {
			// 双向包含的模糊匹配
			for key, candidate := range plan {
				if strings.Contains(key, leaf.Text) || strings.Contains(leaf.Text, key) {
					config, ok = candidate, true
					break
				}
			}
		}
		if ok {
			leaf.Words = config.Words
			if config.NeedsData != nil {
				leaf.UseData = *config.NeedsData
			}
		} else {
			leaf.Words = totalTarget / len(activeLeaves)
		}
	}
	return nil
}

// DistributeChapter 单章精确分配：整除后余数逐一补给最前面的叶子，
// 合计严格等于目标值。
func (s *BudgetService) DistributeChapter(group *models.ChapterGroup, targetTotal int) bool {
	var activeLeaves []*models.OutlineItem
	for _, child := range group.Children {
		if !child.IsParent {
			activeLeaves = append(activeLeaves, child)
		}
	}
	if len(activeLeaves) == 0 {
		return false
	}
	count := len(activeLeaves)
	avg := targetTotal / count
	remainder := targetTotal % count
	for i, leaf := range activeLeaves {
		leaf.Words = avg
		if i < remainder {
			leaf.Words++
		}
	}
	return true
}
