package app

import (
	"fmt"
	"strings"
)

// Command はpequemathsバイナリのサブコマンド。
type Command string

const (
	// CommandServe はHTTPサーバーとゲームセッションの掃除ジョブを起動する。
	CommandServe Command = "serve"
	// CommandMigrate はcategoriesスキーマのマイグレーションを適用して終了する。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は起動中のサーバーの/healthを確認する。
	// distrolessイメージにはcurlがないため、Dockerのヘルスチェックから呼ぶ。
	CommandHealthcheck Command = "healthcheck"
)

var commands = []Command{CommandServe, CommandMigrate, CommandHealthcheck}

// ParseCommand は最初の引数をサブコマンドとして解釈する。引数がない場合はserve。
// 2つ目以降の引数は無視する。
func ParseCommand(args []string) (Command, error) {
	if len(args) == 0 {
		return CommandServe, nil
	}
	for _, c := range commands {
		if args[0] == string(c) {
			return c, nil
		}
	}

	names := make([]string, len(commands))
	for i, c := range commands {
		names[i] = string(c)
	}
	return "", fmt.Errorf("unknown command %q (available: %s)", args[0], strings.Join(names, ", "))
}
