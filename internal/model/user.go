// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はセッションCookieの検証で得られた認証済みユーザーを表す。
// 値は検証時点のクレームのスナップショットであり、発行後に付与された
// カスタムクレームはセッションを更新するまで反映されない。
type Identity struct {
	UID       string
	Email     string
	Name      string
	Picture   string
	Admin     bool
	Claims    map[string]any // 検証済みクレームの生データ（デバッグ用途のみ）
	ExpiresAt time.Time
}

// UserRecord は外部IDプラットフォームが保持するユーザー情報を表す。
// このアプリケーションは読み取りのみ行い、カスタムクレームだけを書き込む。
type UserRecord struct {
	UID          string
	Email        string
	DisplayName  string
	PhotoURL     string
	Admin        bool
	CustomClaims map[string]any
	Disabled     bool
	CreatedAt    time.Time
	LastLoginAt  time.Time
}

// UserPage はユーザー一覧の1ページ分を表す。
// NextPageTokenが空の場合は最終ページ。
type UserPage struct {
	Users         []*UserRecord
	NextPageToken string
}
