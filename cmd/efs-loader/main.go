// Command efs-loader is the handler of the loader function. It unpacks module bundles
// from the modules bucket onto the shared file system mounted into the function.
package main

import (
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"go.uber.org/zap"

	"github.com/rws-framework/rws-lambda/command"
	"github.com/rws-framework/rws-lambda/loader"
)

const defaultRoot = "/mnt/efs"

func main() {
	logCfg := zap.NewProductionConfig()
	logCfg.DisableStacktrace = true
	log, err := logCfg.Build()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	root := os.Getenv(command.EnvEFSRoot)
	if root == "" {
		root = defaultRoot
	}

	sess, err := session.NewSession()
	if err != nil {
		log.Fatal("Cannot create AWS session.", zap.Error(err))
	}

	handler := loader.Handler{
		Downloader: s3manager.NewDownloader(sess),
		Root:       root,
		TempDir:    os.TempDir(),
		Log:        log,
	}
	log.Info("Loader started.", zap.String("root", root))

	lambda.Start(handler.Handle)
}
