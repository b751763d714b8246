package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gestaozabele/projetos/internal/access"
	"github.com/gestaozabele/projetos/internal/auth"
)

func main() {
	_ = godotenv.Load()

	email := flag.String("email", "", "e-mail do usuário (obrigatório)")
	name := flag.String("name", "", "nome exibido")
	position := flag.String("position", "", "cargo; vazio gera usuário sem elevação")
	ttl := flag.Duration("ttl", time.Hour, "validade do token")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage: token -email <email> [-name <nome>] [-position <cargo>] [-ttl 1h]")
		fmt.Fprintln(os.Stderr, "cargos conhecidos:")
		for _, p := range access.Positions() {
			fmt.Fprintf(os.Stderr, "  %s\n", p)
		}
		flag.PrintDefaults()
	}
	flag.Parse()

	secret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if len(secret) < 32 {
		fmt.Fprintln(os.Stderr, "JWT_SECRET deve ter pelo menos 32 caracteres")
		os.Exit(1)
	}
	if strings.TrimSpace(*email) == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *position != "" && access.ParsePosition(*position) == access.PositionUnknown {
		fmt.Fprintf(os.Stderr, "aviso: cargo %q não é executivo; o token não terá elevação\n", *position)
	}

	token, err := auth.NewJWTManager(secret, *ttl).GenerateAccessToken(auth.User{
		Email:    *email,
		FullName: *name,
		Position: *position,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "token error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
