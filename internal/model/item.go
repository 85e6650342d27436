// internal/model/item.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// ItemType は復習アイテムの種別（WaniKaniのsubject_typeに対応）
type ItemType string

const (
	ItemTypeRadical    ItemType = "radical"
	ItemTypeKanji      ItemType = "kanji"
	ItemTypeVocabulary ItemType = "vocabulary"
)

// QuestionType は出題形式（意味 or 読み）
type QuestionType string

const (
	QuestionTypeMeaning QuestionType = "meaning"
	QuestionTypeReading QuestionType = "reading"
)

// ItemResult は1問の回答結果。未回答の場合は空文字列
type ItemResult string

const (
	ResultCorrect   ItemResult = "correct"
	ResultIncorrect ItemResult = "incorrect"
	ResultSkipped   ItemResult = "skipped"
)

// InputMethod は回答の入力手段
type InputMethod string

const (
	InputMethodVoice InputMethod = "voice"
	InputMethodText  InputMethod = "text"
)

// ReviewItem は復習セッション内の1問を表します。
// Result と AnsweredAt は回答時に一度だけ設定され、以降は変更不可
type ReviewItem struct {
	ItemID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"item_id"`
	SessionID uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Position  int       `gorm:"not null" json:"-"` // セッション作成時に固定される出題順

	WanikaniID     string       `json:"wanikani_id,omitempty"` // 外部APIの subject ID
	Type           ItemType     `gorm:"not null" json:"type"`
	QuestionType   QuestionType `gorm:"not null" json:"question_type"`
	Question       string       `gorm:"not null" json:"question"`
	ExpectedAnswer string       `gorm:"not null" json:"expected_answer"`
	// 許容される別解（補助的な意味など）
	AuxiliaryMeanings []string `gorm:"serializer:json" json:"auxiliary_meanings,omitempty"`

	UserAnswer      *string     `json:"user_answer,omitempty"`
	Result          ItemResult  `json:"result,omitempty"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`  // 出題された時刻
	AnsweredAt      *time.Time  `json:"answered_at,omitempty"` // 回答された時刻
	InputMethod     InputMethod `json:"input_method,omitempty"`
	VoiceConfidence *float64    `json:"voice_confidence,omitempty"` // 音声認識の信頼度 (0-1)

	// 外部API由来のメタデータ（コアではそのまま持ち回るだけ）
	SRSStage  int    `json:"srs_stage"`
	Character string `json:"character,omitempty"`
	AudioURL  string `json:"audio_url,omitempty"`
	Mnemonic  string `json:"mnemonic,omitempty"`
}

func (ReviewItem) TableName() string {
	return "review_items"
}

// Answered はアイテムが回答済みかどうかを返します
func (i *ReviewItem) Answered() bool {
	return i.Result != ""
}

// Clone はアイテムのディープコピーを返します
func (i *ReviewItem) Clone() ReviewItem {
	c := *i
	if i.AuxiliaryMeanings != nil {
		c.AuxiliaryMeanings = append([]string(nil), i.AuxiliaryMeanings...)
	}
	if i.UserAnswer != nil {
		v := *i.UserAnswer
		c.UserAnswer = &v
	}
	if i.StartedAt != nil {
		t := *i.StartedAt
		c.StartedAt = &t
	}
	if i.AnsweredAt != nil {
		t := *i.AnsweredAt
		c.AnsweredAt = &t
	}
	if i.VoiceConfidence != nil {
		v := *i.VoiceConfidence
		c.VoiceConfidence = &v
	}
	return c
}
