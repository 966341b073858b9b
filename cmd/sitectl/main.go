package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/morf1ng/105site/internal/admin"
	"github.com/morf1ng/105site/internal/logging"
	"github.com/morf1ng/105site/pkg/imagenorm"
	"github.com/morf1ng/105site/pkg/projectshape"
	"github.com/morf1ng/105site/pkg/siteapi"
)

const usageText = `Usage: sitectl <command> [args]

Commands:
  login <email> <password>           トークンを取得して表示
  refresh <refresh_token>            トークンを更新
  projects                           プロジェクト一覧
  project <id>                       プロジェクトを編集用の形で表示
  edit <id|new> [-f edits.json] [-img role[:index]=path ...]
                                     プロジェクトを編集して保存
  delete-project <id>                プロジェクトを削除
  roles | role-create <name> | role-update <id> <name> | role-delete <id>
  users | user <id> | user-delete <id>
  user-create -email E -password P -roles 1,2 [-fullname N]
  user-update <id> [-email E] [-password P] [-roles 1,2] [-fullname N]
  tables                             テーブル一覧

Environment:
  SITE_API_URL  (default http://localhost:8000)
  SITE_TOKEN    アクセストークン`

func main() {
	_ = godotenv.Load()
	// 標準出力は JSON の結果に使う
	slog.SetDefault(logging.New(os.Stderr, os.Getenv("LOG_FORMAT"), logging.ParseLevel(os.Getenv("LOG_LEVEL"))))

	baseURL := os.Getenv("SITE_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8000"
	}
	client := siteapi.New(baseURL, siteapi.WithToken(os.Getenv("SITE_TOKEN")))

	if err := run(context.Background(), client, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, usageText)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "sitectl:", err)
		os.Exit(1)
	}
}

var errUsage = errors.New("usage")

// run はサブコマンドを実行し、結果を JSON で out に書く
func run(ctx context.Context, c *siteapi.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "login":
		if len(rest) != 2 {
			return errUsage
		}
		tok, err := c.Login(ctx, rest[0], rest[1])
		if err != nil {
			return err
		}
		return printJSON(out, tok)
	case "refresh":
		if len(rest) != 1 {
			return errUsage
		}
		tok, err := c.Refresh(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, tok)

	case "projects":
		list, err := c.ListProjects(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, list)
	case "project":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		s, err := newEditor(c).Open(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(out, s.View)
	case "edit":
		return runEdit(ctx, c, rest, out)
	case "delete-project":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		return c.DeleteProject(ctx, id)

	case "roles":
		roles, err := c.ListRoles(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, roles)
	case "role-create":
		if len(rest) != 1 {
			return errUsage
		}
		role, err := c.CreateRole(ctx, rest[0])
		if err != nil {
			return err
		}
		return printJSON(out, role)
	case "role-update":
		if len(rest) != 2 {
			return errUsage
		}
		id, err := idArg(rest[:1])
		if err != nil {
			return err
		}
		role, err := c.UpdateRole(ctx, id, rest[1])
		if err != nil {
			return err
		}
		return printJSON(out, role)
	case "role-delete":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		return c.DeleteRole(ctx, id)

	case "users":
		users, err := c.ListUsers(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, users)
	case "user":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		u, err := c.GetUser(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(out, u)
	case "user-create":
		in, _, err := parseUserFlags(cmd, rest)
		if err != nil {
			return err
		}
		if in.Email == nil || in.Password == nil || in.RoleIDs == nil {
			return errUsage
		}
		u, err := c.CreateUser(ctx, in)
		if err != nil {
			return err
		}
		return printJSON(out, u)
	case "user-update":
		if len(rest) == 0 {
			return errUsage
		}
		id, err := idArg(rest[:1])
		if err != nil {
			return err
		}
		in, _, err := parseUserFlags(cmd, rest[1:])
		if err != nil {
			return err
		}
		u, err := c.UpdateUser(ctx, id, in)
		if err != nil {
			return err
		}
		return printJSON(out, u)
	case "user-delete":
		id, err := idArg(rest)
		if err != nil {
			return err
		}
		return c.DeleteUser(ctx, id)

	case "tables":
		tables, err := c.ListTables(ctx)
		if err != nil {
			return err
		}
		return printJSON(out, map[string][]string{"tables": tables})
	}
	return errUsage
}

func newEditor(c *siteapi.Client) *admin.Editor {
	return admin.NewEditor(c, c.Resolver(), admin.Options{Normalize: imagenorm.DefaultOptions()})
}

// imageFlags は -img を複数回受け取る
type imageFlags []string

func (f *imageFlags) String() string     { return strings.Join(*f, ",") }
func (f *imageFlags) Set(v string) error { *f = append(*f, v); return nil }

func runEdit(ctx context.Context, c *siteapi.Client, args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	target, rest := args[0], args[1:]

	fs := flag.NewFlagSet("edit", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	editsPath := fs.String("f", "", "JSON file with view fields to change")
	var images imageFlags
	fs.Var(&images, "img", "role[:index]=path")
	if err := fs.Parse(rest); err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ed := newEditor(c)
	var s projectshape.Session
	if target == "new" {
		s = ed.New()
	} else {
		id, err := idArg([]string{target})
		if err != nil {
			return err
		}
		if s, err = ed.Open(ctx, id); err != nil {
			return err
		}
	}

	if *editsPath != "" {
		edits, err := os.ReadFile(*editsPath)
		if err != nil {
			return err
		}
		if s, err = admin.ApplyEdits(s, edits); err != nil {
			return err
		}
	}

	for _, spec := range images {
		slot, path, err := parseImageSpec(spec)
		if err != nil {
			return err
		}
		src, err := imagenorm.OpenPath(path)
		if err != nil {
			return err
		}
		if s, _, err = ed.AttachImage(s, slot, src); err != nil {
			return err
		}
	}

	saved, err := ed.Save(ctx, s)
	if err != nil {
		return err
	}
	return printJSON(out, saved.View)
}

// parseImageSpec は "stage:1=./a.jpg" や "preview=./p.png" を解釈する
func parseImageSpec(spec string) (projectshape.Slot, string, error) {
	key, path, ok := strings.Cut(spec, "=")
	if !ok || path == "" {
		return projectshape.Slot{}, "", fmt.Errorf("invalid -img %q: want role[:index]=path", spec)
	}
	roleName, idx, hasIdx := strings.Cut(key, ":")
	role, err := projectshape.ParseRole(roleName)
	if err != nil {
		return projectshape.Slot{}, "", err
	}
	slot := projectshape.Slot{Role: role}
	if hasIdx {
		n, err := strconv.Atoi(idx)
		if err != nil || n < 0 {
			return projectshape.Slot{}, "", fmt.Errorf("invalid -img index %q", idx)
		}
		slot.Index = n
	} else if role.Indexed() {
		return projectshape.Slot{}, "", fmt.Errorf("-img %s needs an index", roleName)
	}
	return slot, path, nil
}

// parseUserFlags は指定されたフラグだけを UserInput に入れる
func parseUserFlags(name string, args []string) (siteapi.UserInput, []string, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	email := fs.String("email", "", "")
	password := fs.String("password", "", "")
	fullname := fs.String("fullname", "", "")
	roles := fs.String("roles", "", "comma separated role ids")
	if err := fs.Parse(args); err != nil {
		return siteapi.UserInput{}, nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	var in siteapi.UserInput
	var parseErr error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "email":
			in.Email = email
		case "password":
			in.Password = password
		case "fullname":
			in.Fullname = fullname
		case "roles":
			in.RoleIDs = []int64{}
			for _, part := range strings.Split(*roles, ",") {
				part = strings.TrimSpace(part)
				if part == "" {
					continue
				}
				id, err := strconv.ParseInt(part, 10, 64)
				if err != nil {
					parseErr = fmt.Errorf("invalid role id %q", part)
					return
				}
				in.RoleIDs = append(in.RoleIDs, id)
			}
		}
	})
	return in, fs.Args(), parseErr
}

func idArg(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", args[0])
	}
	return id, nil
}

func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
