// cmd/tools/taxonomy-importer/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"taqyim/internal/common/config"
	"taqyim/internal/common/database"
	"taqyim/internal/common/logger"
	"taqyim/internal/criteria"
	"taqyim/internal/excel"
	"taqyim/internal/store"
	"taqyim/internal/taxonomy"
	"taqyim/pkg/registry"
)

// taxonomy-importer runs workbook imports and exports against the document
// store directly, without going through the admin server. Useful for seeding
// a fresh framework from a prepared .xlsx.

func main() {
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	validateCmd := flag.NewFlagSet("validate", flag.ExitOnError)

	// Import command flags
	importConfig := importCmd.String("config", "configs/config.yaml", "Path to config file")
	importTemplate := importCmd.String("template", "", "Import template ID (e.g., domains-v1)")
	importFramework := importCmd.String("framework", "", "Target framework ID")
	importFile := importCmd.String("file", "", "Path to the .xlsx workbook")

	// Export command flags
	exportConfig := exportCmd.String("config", "configs/config.yaml", "Path to config file")
	exportFramework := exportCmd.String("framework", "", "Framework ID to export")
	exportFile := exportCmd.String("out", "", "Output .xlsx path")

	// Validate command flags
	validatePath := validateCmd.String("path", "configs/import-templates.json", "Path to template registry file")

	if len(os.Args) < 2 {
		help()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		if *importTemplate == "" || *importFramework == "" || *importFile == "" {
			fmt.Println("Error: template, framework, and file are required for import.")
			importCmd.Usage()
			os.Exit(1)
		}
		if err := runImport(*importConfig, *importTemplate, *importFramework, *importFile); err != nil {
			fmt.Printf("Import failed: %v\n", err)
			os.Exit(1)
		}

	case "export":
		exportCmd.Parse(os.Args[2:])
		if *exportFramework == "" || *exportFile == "" {
			fmt.Println("Error: framework and out are required for export.")
			exportCmd.Usage()
			os.Exit(1)
		}
		if err := runExport(*exportConfig, *exportFramework, *exportFile); err != nil {
			fmt.Printf("Export failed: %v\n", err)
			os.Exit(1)
		}

	case "validate":
		validateCmd.Parse(os.Args[2:])
		if err := runValidate(*validatePath); err != nil {
			fmt.Printf("Template registry validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Template registry validation passed.")

	case "help":
		fallthrough
	default:
		help()
	}
}

func buildService(configPath string) (*taxonomy.Service, *store.PostgresStore, *config.Config, func(), error) {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.NewNoOpLogger()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if err := pg.Ping(context.Background()); err != nil {
		pg.Close()
		return nil, nil, nil, nil, fmt.Errorf("postgres unreachable: %w", err)
	}

	docStore := store.NewPostgresStore(pg)
	if err := docStore.Migrate(context.Background()); err != nil {
		pg.Close()
		return nil, nil, nil, nil, fmt.Errorf("failed to migrate document schema: %w", err)
	}

	svc := taxonomy.NewService(docStore, nil, log)
	cleanup := func() { pg.Close() }
	return svc, docStore, cfg, cleanup, nil
}

func runImport(configPath, templateID, frameworkID, filePath string) error {
	svc, _, cfg, cleanup, err := buildService(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	reg, err := registry.LoadRegistry(cfg.Import.TemplateRegistryPath)
	if err != nil {
		return fmt.Errorf("failed to load template registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("template registry invalid: %w", err)
	}

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	importer := excel.NewImporter(svc, reg, cfg.Import, logger.NewNoOpLogger())
	report, err := importer.Import(context.Background(), templateID, frameworkID, f)
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d of %d rows (%d skipped)\n", report.Imported, report.Total, report.Skipped)
	for _, rowErr := range report.Errors {
		for _, msg := range rowErr.Messages {
			fmt.Printf("  row %d: %s\n", rowErr.Row, msg)
		}
	}
	if report.Skipped > 0 {
		return fmt.Errorf("%d rows were skipped", report.Skipped)
	}
	return nil
}

func runExport(configPath, frameworkID, outPath string) error {
	svc, docs, _, cleanup, err := buildService(configPath)
	if err != nil {
		return err
	}
	defer cleanup()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	critSvc := criteria.NewService(docs, logger.NewNoOpLogger())
	exporter := excel.NewExporter(svc, critSvc, logger.NewNoOpLogger())
	if err := exporter.ExportFramework(context.Background(), frameworkID, out); err != nil {
		return err
	}

	fmt.Printf("Exported framework %s to %s\n", frameworkID, outPath)
	return nil
}

func runValidate(path string) error {
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load template registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	fmt.Printf("Found %d templates.\n", len(reg.Templates))
	return nil
}

func help() {
	fmt.Print(`
Usage: taxonomy-importer <command> [flags]

Commands:
  import   Import a workbook into a framework using a registered template
  export   Export a framework hierarchy to an .xlsx workbook
  validate Validate the import template registry file
  help     Show this help message

Examples:
  taxonomy-importer import -template domains-v1 -framework fw-nca-ecc -file domains.xlsx
  taxonomy-importer export -framework fw-nca-ecc -out nca-ecc.xlsx
  taxonomy-importer validate -path configs/import-templates.json

Use 'taxonomy-importer <command> -h' for more information about a command.
`)
}
