// Package admincli はIDプラットフォーム上の管理者フラグを直接確認・変更するCLIを提供する。
package admincli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/hitoshi/pequemaths/internal/admin"
	"github.com/hitoshi/pequemaths/internal/model"
)

// DefaultEnvFile は資格情報を読み込むファイルのデフォルトパス。
const DefaultEnvFile = ".env.local"

// Credentials はサービスアカウントの資格情報。
// CLIはアプリケーションデフォルト認証情報を使わず、3つすべてを必須とする。
type Credentials struct {
	ProjectID   string `env:"FIREBASE_PROJECT_ID,required,notEmpty"`
	ClientEmail string `env:"FIREBASE_CLIENT_EMAIL,required,notEmpty"`
	PrivateKey  string `env:"FIREBASE_PRIVATE_KEY,required,notEmpty"`
}

// UserAdmin はCLIが使うユーザー管理操作。admin.Serviceが実装する。
type UserAdmin interface {
	GetUser(ctx context.Context, uid string) (*model.UserRecord, error)
	SetAdmin(ctx context.Context, uid string, makeAdmin bool) error
}

// ServiceFactory は資格情報からUserAdminを生成する。
type ServiceFactory func(ctx context.Context, creds Credentials) (UserAdmin, error)

// LoadCredentials はenvファイルを読み込み、資格情報を取り出す。
// プロセスの環境変数は参照しない。
func LoadCredentials(path string) (Credentials, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("no se pudo leer %s: %w", path, err)
	}

	var creds Credentials
	if err := env.ParseWithOptions(&creds, env.Options{Environment: values}); err != nil {
		return Credentials{}, fmt.Errorf("faltan variables en %s (se necesitan FIREBASE_PROJECT_ID, FIREBASE_PRIVATE_KEY, FIREBASE_CLIENT_EMAIL): %w", path, err)
	}
	// クォートなしの値ではエスケープされた改行が残る
	creds.PrivateKey = strings.ReplaceAll(creds.PrivateKey, `\n`, "\n")
	return creds, nil
}

// cli はサブコマンド間で共有する状態。
type cli struct {
	factory ServiceFactory
	envFile string
	users   UserAdmin
}

// NewRootCommand はpequemaths-adminのルートコマンドを生成する。
func NewRootCommand(factory ServiceFactory) *cobra.Command {
	c := &cli{factory: factory}

	root := &cobra.Command{
		Use:           "pequemaths-admin",
		Short:         "Gestiona el rol de administrador de los usuarios de PequeMaths",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.connect(cmd.Context())
		},
	}
	root.PersistentFlags().StringVar(&c.envFile, "env-file", DefaultEnvFile, "archivo con las credenciales de Firebase")

	root.AddCommand(c.checkAdminCommand(), c.setAdminCommand())
	return root
}

func (c *cli) connect(ctx context.Context) error {
	creds, err := LoadCredentials(c.envFile)
	if err != nil {
		return err
	}
	users, err := c.factory(ctx, creds)
	if err != nil {
		return fmt.Errorf("error inicializando Firebase: %w", err)
	}
	c.users = users
	return nil
}

func (c *cli) checkAdminCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-admin <uid>",
		Short: "Muestra un usuario y si tiene el claim admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := c.users.GetUser(cmd.Context(), args[0])
			if err != nil {
				return userError(args[0], err)
			}
			return printUser(cmd.OutOrStdout(), u)
		},
	}
}

func (c *cli) setAdminCommand() *cobra.Command {
	var revoke bool
	cmd := &cobra.Command{
		Use:   "set-admin <uid>",
		Short: "Asigna (o con --revoke retira) el claim admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			uid := args[0]
			if err := c.users.SetAdmin(cmd.Context(), uid, !revoke); err != nil {
				return userError(uid, err)
			}

			out := cmd.OutOrStdout()
			if revoke {
				pterm.Success.WithWriter(out).Printfln("Admin claim retirado de: %s", uid)
			} else {
				pterm.Success.WithWriter(out).Printfln("Admin claim asignado exitosamente a: %s", uid)
			}
			pterm.Info.WithWriter(out).Println("El cambio se aplica cuando el usuario vuelve a iniciar sesión o refresca su sesión.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&revoke, "revoke", false, "retira el claim en lugar de asignarlo")
	return cmd
}

func printUser(w io.Writer, u *model.UserRecord) error {
	name := u.DisplayName
	if name == "" {
		name = "N/A"
	}
	claims := "Ninguno"
	if len(u.CustomClaims) > 0 {
		claims = fmt.Sprintf("%v", u.CustomClaims)
	}

	pterm.Success.WithWriter(w).Println("Usuario encontrado")
	err := pterm.DefaultTable.WithWriter(w).WithData(pterm.TableData{
		{"UID", u.UID},
		{"Email", u.Email},
		{"Nombre", name},
		{"Custom Claims", claims},
	}).Render()
	if err != nil {
		return err
	}

	if model.AdminClaim(u.CustomClaims) {
		pterm.Success.WithWriter(w).Println("El usuario ES administrador")
	} else {
		pterm.Warning.WithWriter(w).Println("El usuario NO es administrador")
	}
	return nil
}

func userError(uid string, err error) error {
	if errors.Is(err, admin.ErrUserNotFound) {
		return fmt.Errorf("usuario no encontrado: %s", uid)
	}
	return err
}
