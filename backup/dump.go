package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"bitbucket.org/mmagritech/farm_backend/utils"
)

// dumpEnv reads the same DB_* env vars the pool connection uses, so the dump
// always targets the database the application is writing to.
type dumpEnv struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

func readDumpEnv() (dumpEnv, error) {
	env := dumpEnv{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		Name:     os.Getenv("DB_NAME"),
	}
	if env.Name == "" {
		return env, utils.PreconditionError("DB_NAME is not set")
	}
	if env.Port == "" {
		env.Port = "3306"
	}
	return env, nil
}

func (e dumpEnv) clientArgs() []string {
	args := []string{"-h", e.Host, "-P", e.Port, "-u", e.User}
	if strings.HasPrefix(e.Host, "/cloudsql/") {
		args = []string{"-S", e.Host, "-u", e.User}
	}
	return args
}

// runDump shells out to mysqldump and writes the result to filePath,
// gzipping on the way when compress is set. The password goes through
// MYSQL_PWD so it never appears in the process list.
func (o *Orchestrator) runDump(ctx context.Context, filePath string, compress bool) error {
	env, err := readDumpEnv()
	if err != nil {
		return err
	}

	args := append(env.clientArgs(),
		"--single-transaction",
		"--skip-lock-tables",
		"--routines",
		"--triggers",
		env.Name,
	)
	cmd := exec.CommandContext(ctx, "mysqldump", args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+env.Password)

	out, err := os.Create(filePath)
	if err != nil {
		return err
	}
	defer out.Close()

	var sink io.WriteCloser = out
	if compress {
		sink = gzip.NewWriter(out)
	}

	var stderr bytes.Buffer
	cmd.Stdout = sink
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if compress {
			sink.Close()
		}
		return toolError("mysqldump", err, stderr.String())
	}
	if compress {
		if err := sink.Close(); err != nil {
			return err
		}
	}
	return out.Sync()
}

// runRestore replays a plain-SQL dump through the mysql client.
func (o *Orchestrator) runRestore(ctx context.Context, dumpPath string) error {
	env, err := readDumpEnv()
	if err != nil {
		return err
	}

	in, err := os.Open(dumpPath)
	if err != nil {
		return err
	}
	defer in.Close()

	cmd := exec.CommandContext(ctx, "mysql", append(env.clientArgs(), env.Name)...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+env.Password)
	cmd.Stdin = in

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return toolError("mysql", err, stderr.String())
	}
	return nil
}

// recreateDatabase drops and recreates the target schema. Runs through the
// mysql client without selecting a default database.
func (o *Orchestrator) recreateDatabase(ctx context.Context) error {
	env, err := readDumpEnv()
	if err != nil {
		return err
	}

	stmt := fmt.Sprintf("DROP DATABASE IF EXISTS `%s`; CREATE DATABASE `%s`;", env.Name, env.Name)
	cmd := exec.CommandContext(ctx, "mysql", append(env.clientArgs(), "-e", stmt)...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+env.Password)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return toolError("mysql", err, stderr.String())
	}
	return nil
}

func toolError(tool string, err error, stderr string) error {
	exitCode := -1
	if exitErr, ok := err.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return &utils.ExternalToolError{
		Tool:     tool,
		ExitCode: exitCode,
		Stderr:   strings.TrimSpace(stderr),
	}
}
