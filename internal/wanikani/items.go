// internal/wanikani/items.go
package wanikani

import (
	"context"
	"sort"
	"strconv"

	"voice_kani/internal/model"
)

// FetchDueItems は復習可能な assignment と対応する subject を取得し、
// コアが扱う正規化済み ReviewItem のリストに変換します。
// limit > 0 の場合はアイテム数を上限で切ります
func (c *Client) FetchDueItems(ctx context.Context, limit int) ([]model.ReviewItem, error) {
	assignments, err := c.ListDueAssignments(ctx)
	if err != nil {
		return nil, err
	}
	if len(assignments) == 0 {
		return []model.ReviewItem{}, nil
	}

	subjectIDs := make([]int, 0, len(assignments))
	for _, a := range assignments {
		subjectIDs = append(subjectIDs, a.Data.SubjectID)
	}
	subjects, err := c.ListSubjects(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	subjectByID := make(map[int]Subject, len(subjects))
	for _, s := range subjects {
		subjectByID[s.ID] = s.Data
	}

	// 出題順を安定させるため subject ID の昇順で並べる
	sort.Slice(assignments, func(i, j int) bool {
		return assignments[i].Data.SubjectID < assignments[j].Data.SubjectID
	})

	items := make([]model.ReviewItem, 0, len(assignments))
	for _, a := range assignments {
		subject, ok := subjectByID[a.Data.SubjectID]
		if !ok {
			continue
		}
		items = append(items, buildItems(a, subject)...)
		if limit > 0 && len(items) >= limit {
			items = items[:limit]
			break
		}
	}
	return items, nil
}

// buildItems は1つの subject から出題アイテムを組み立てます。
// 意味の問題は常に作り、読みを持つ subject には読みの問題も作る
// （出題形式の選択は決定的であり、ランダムには選ばない）
func buildItems(a AssignmentResource, s Subject) []model.ReviewItem {
	question := s.Slug
	character := ""
	if s.Characters != nil && *s.Characters != "" {
		question = *s.Characters
		character = *s.Characters
	}

	var items []model.ReviewItem

	if meaning, aux := primaryMeaning(s); meaning != "" {
		items = append(items, model.ReviewItem{
			WanikaniID:        itemWanikaniID(a),
			Type:              model.ItemType(a.Data.SubjectType),
			QuestionType:      model.QuestionTypeMeaning,
			Question:          question,
			ExpectedAnswer:    meaning,
			AuxiliaryMeanings: aux,
			SRSStage:          a.Data.SRSStage,
			Character:         character,
			Mnemonic:          s.MeaningMnemonic,
		})
	}

	if reading := primaryReading(s); reading != "" {
		items = append(items, model.ReviewItem{
			WanikaniID:     itemWanikaniID(a),
			Type:           model.ItemType(a.Data.SubjectType),
			QuestionType:   model.QuestionTypeReading,
			Question:       question,
			ExpectedAnswer: reading,
			SRSStage:       a.Data.SRSStage,
			Character:      character,
		})
	}

	return items
}

func itemWanikaniID(a AssignmentResource) string {
	// コアにとっては不透明な外部ID。subject 単位で持ち回る
	return "wk-subject-" + strconv.Itoa(a.Data.SubjectID)
}

func primaryMeaning(s Subject) (string, []string) {
	primary := ""
	var aux []string
	for _, m := range s.Meanings {
		if !m.AcceptedAnswer {
			continue
		}
		if m.Primary && primary == "" {
			primary = m.Meaning
		} else {
			aux = append(aux, m.Meaning)
		}
	}
	if primary == "" && len(aux) > 0 {
		primary, aux = aux[0], aux[1:]
	}
	for _, am := range s.AuxiliaryMeanings {
		if am.Type == "whitelist" {
			aux = append(aux, am.Meaning)
		}
	}
	return primary, aux
}

func primaryReading(s Subject) string {
	for _, r := range s.Readings {
		if r.Primary && r.AcceptedAnswer {
			return r.Reading
		}
	}
	for _, r := range s.Readings {
		if r.AcceptedAnswer {
			return r.Reading
		}
	}
	return ""
}
