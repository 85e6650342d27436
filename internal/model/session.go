// internal/model/session.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionSource は復習アイテムの取得元
type SessionSource string

const (
	SourceWaniKani SessionSource = "wanikani"
	SourceCustom   SessionSource = "custom"
)

// SessionSettings はセッション単位の設定
type SessionSettings struct {
	VoiceEnabled bool             `json:"voice_enabled"`
	VoiceConfig  VoiceInputConfig `json:"voice_config"`
	TimeLimitSec int              `json:"time_limit_sec,omitempty"` // 0 = 無制限
	AutoAdvance  bool             `json:"auto_advance"`
}

// VoiceStats は音声入力の利用統計
type VoiceStats struct {
	VoiceAnswerCount  int     `json:"voice_answer_count"`
	TextAnswerCount   int     `json:"text_answer_count"`
	ConfidenceSamples int     `json:"confidence_samples"` // 信頼度が付与された回答の件数
	AverageConfidence float64 `json:"average_confidence"` // ConfidenceSamples を母数とする逐次平均
	FailureCount      int     `json:"failure_count"`
}

// ReviewSession は1回の復習セッションを表します。
// Items の並びは作成時に固定され、回答はアイテムをその場で更新します
type ReviewSession struct {
	SessionID uuid.UUID     `gorm:"type:uuid;primaryKey" json:"session_id"`
	UserID    string        `gorm:"not null;index" json:"user_id"`
	Source    SessionSource `gorm:"not null" json:"source"`

	Items []ReviewItem `gorm:"foreignKey:SessionID;references:SessionID" json:"items"`

	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Completed      bool       `gorm:"not null;default:false" json:"completed"`
	CorrectCount   int        `gorm:"not null;default:0" json:"correct_count"`
	IncorrectCount int        `gorm:"not null;default:0" json:"incorrect_count"`
	// Score は全問回答による完了時のみ設定される (0-100)
	Score *int `json:"score,omitempty"`

	Settings   SessionSettings `gorm:"serializer:json" json:"settings"`
	VoiceStats VoiceStats      `gorm:"serializer:json" json:"voice_stats"`

	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

func (ReviewSession) TableName() string {
	return "review_sessions"
}

// AnsweredCount は回答済みアイテム数を返します
func (s *ReviewSession) AnsweredCount() int {
	n := 0
	for i := range s.Items {
		if s.Items[i].Answered() {
			n++
		}
	}
	return n
}

// FindItem は itemID に一致するアイテムへのポインタを返します（無ければ nil）
func (s *ReviewSession) FindItem(itemID uuid.UUID) *ReviewItem {
	for i := range s.Items {
		if s.Items[i].ItemID == itemID {
			return &s.Items[i]
		}
	}
	return nil
}

// Clone はセッションのディープコピーを返します。
// ストアとの間で内部状態を共有しないために使用します
func (s *ReviewSession) Clone() *ReviewSession {
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	if s.Score != nil {
		v := *s.Score
		c.Score = &v
	}
	c.Items = make([]ReviewItem, len(s.Items))
	for i := range s.Items {
		c.Items[i] = s.Items[i].Clone()
	}
	return &c
}

// SessionProgress は進捗取得APIのレスポンスDTO
type SessionProgress struct {
	TotalItems       int     `json:"total_items"`
	CompletedItems   int     `json:"completed_items"`
	CorrectAnswers   int     `json:"correct_answers"`
	IncorrectAnswers int     `json:"incorrect_answers"`
	AverageTimeMs    float64 `json:"average_time_ms"` // 回答済みアイテムの平均所要時間
}

// UserDataExport はユーザーデータ出力（データ主体の権利対応）のDTO
type UserDataExport struct {
	Sessions       []*ReviewSession `json:"sessions"`
	TotalSessions  int              `json:"total_sessions"`
	TotalCorrect   int              `json:"total_correct"`
	TotalIncorrect int              `json:"total_incorrect"`
}

// StartSessionRequest はセッション開始リクエストのDTO
type StartSessionRequest struct {
	UserID   string              `json:"user_id,omitempty"`
	Source   SessionSource       `json:"source,omitempty" validate:"omitempty,oneof=wanikani custom"`
	Items    []NewReviewItem     `json:"items" validate:"omitempty,dive"`
	Settings *SessionSettings    `json:"settings,omitempty"`
}

// NewReviewItem はセッション開始時に受け取るアイテムのDTO
type NewReviewItem struct {
	WanikaniID        string       `json:"wanikani_id,omitempty"`
	Type              ItemType     `json:"type" validate:"required,oneof=radical kanji vocabulary"`
	QuestionType      QuestionType `json:"question_type" validate:"required,oneof=meaning reading"`
	Question          string       `json:"question" validate:"required"`
	ExpectedAnswer    string       `json:"expected_answer" validate:"required"`
	AuxiliaryMeanings []string     `json:"auxiliary_meanings,omitempty"`
	SRSStage          int          `json:"srs_stage,omitempty"`
	Character         string       `json:"character,omitempty"`
	AudioURL          string       `json:"audio_url,omitempty"`
	Mnemonic          string       `json:"mnemonic,omitempty"`
}

// ToReviewItem はDTOを永続化用のエンティティに変換します
func (n *NewReviewItem) ToReviewItem() ReviewItem {
	return ReviewItem{
		WanikaniID:        n.WanikaniID,
		Type:              n.Type,
		QuestionType:      n.QuestionType,
		Question:          n.Question,
		ExpectedAnswer:    n.ExpectedAnswer,
		AuxiliaryMeanings: n.AuxiliaryMeanings,
		SRSStage:          n.SRSStage,
		Character:         n.Character,
		AudioURL:          n.AudioURL,
		Mnemonic:          n.Mnemonic,
	}
}

// SubmitAnswerRequest は回答送信リクエストのDTO。
// 正誤判定は呼び出し側（期待値との比較を行う層）が行い、ここでは結果のみ受け取る
type SubmitAnswerRequest struct {
	ItemID          uuid.UUID    `json:"item_id" validate:"required"`
	UserAnswer      *string      `json:"user_answer,omitempty"`
	IsCorrect       *bool        `json:"is_correct" validate:"required"`
	QuestionType    QuestionType `json:"question_type,omitempty" validate:"omitempty,oneof=meaning reading"`
	InputMethod     InputMethod  `json:"input_method" validate:"required,oneof=voice text"`
	VoiceConfidence *float64     `json:"voice_confidence,omitempty" validate:"omitempty,gte=0,lte=1"`
}
