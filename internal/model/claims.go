package model

// AdminClaimKey は管理者フラグを表すカスタムクレームのキー。
const AdminClaimKey = "admin"

// AdminClaim はクレーム集合が管理者を表すかどうかを判定する。
// トップレベルの "admin" が真偽値 true の場合のみ true を返す。
// 文字列 "true"、数値、ネストした customClaims.admin はすべて false として扱う。
// セッション検証、ユーザー一覧、CLIのすべてがこの関数で判定する。
func AdminClaim(claims map[string]any) bool {
	v, ok := claims[AdminClaimKey].(bool)
	return ok && v
}
