// load_caf valida archivos CAF del SII y los registra para una empresa.
//
// Uso:
//
//	go run ./cmd/load_caf --company <uuid> [--code 39] FoliosSII76000000039.xml ...
//	go run ./cmd/load_caf --dry-run --rut 76000000-0 *.xml
//
// Con --dry-run no se conecta a la base: solo parsea, valida y muestra el resumen.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/jhoicas/boleta-pos/internal/application/pos"
	"github.com/jhoicas/boleta-pos/internal/domain/entity"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/postgres"
	"github.com/jhoicas/boleta-pos/internal/infrastructure/timbre"
	"github.com/jhoicas/boleta-pos/pkg/config"
	"github.com/jhoicas/boleta-pos/pkg/logger"
)

func main() {
	companyID := pflag.String("company", "", "ID de la empresa que recibe los CAF")
	rut := pflag.String("rut", "", "RUT emisor esperado (solo --dry-run)")
	code := pflag.Int("code", 0, "código SII esperado; 0 acepta el del archivo")
	dryRun := pflag.Bool("dry-run", false, "validar sin guardar")
	pflag.Parse()

	files := pflag.Args()
	if len(files) == 0 {
		fmt.Fprintln(os.Stderr, "uso: load_caf [--company ID | --dry-run --rut RUT] [--code N] archivo.xml...")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "cargar configuración: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	var authority timbre.AuthorityKeyring
	if cfg.SII.AuthorityKeyDir != "" {
		if authority, err = timbre.LoadAuthorityKeys(cfg.SII.AuthorityKeyDir); err != nil {
			log.Fatal().Err(err).Msg("cargar llaves del SII")
		}
	}
	reader := timbre.NewCafReader(authority)

	out := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(out, "ARCHIVO\tTIPO\tDESDE\tHASTA\tRUT\tIDK\tESTADO")

	if *dryRun {
		failed := 0
		for _, path := range files {
			status := "ok"
			caf, err := readCaf(reader, path)
			if err == nil && *rut != "" {
				err = reader.Validate(caf, *rut, *code, time.Now())
			}
			if err == nil {
				err = reader.VerifyAuthority(caf)
			}
			if err != nil {
				status = err.Error()
				failed++
			}
			printRow(out, path, caf, status)
		}
		out.Flush()
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	if *companyID == "" {
		log.Fatal().Msg("--company es requerido para guardar los CAF")
	}
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	uc := pos.NewCafUseCase(reader,
		postgres.NewCafRepository(pool),
		postgres.NewCompanyRepository(pool),
		nil,
		nil,
		log.Component("caf"))

	failed := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			printRow(out, path, nil, err.Error())
			failed++
			continue
		}
		res, err := uc.Load(ctx, *companyID, filepath.Base(path), data, *code)
		if err != nil {
			printRow(out, path, nil, err.Error())
			failed++
			continue
		}
		fmt.Fprintf(out, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
			filepath.Base(path), res.SIICode, res.RangeStart, res.RangeEnd, res.EmitterRUT, res.KeyID, "cargado "+res.ID)
	}
	out.Flush()
	if failed > 0 {
		os.Exit(1)
	}
}

func readCaf(reader *timbre.CafReader, path string) (*entity.CafFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return reader.Parse(data)
}

func printRow(w *tabwriter.Writer, path string, caf *entity.CafFile, status string) {
	if caf == nil {
		fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t%s\n", filepath.Base(path), status)
		return
	}
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\t%s\n",
		filepath.Base(path), caf.SIICode, caf.RangeStart, caf.RangeEnd, caf.EmitterRUT, caf.KeyID, status)
}
