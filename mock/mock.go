//go:generate mockgen -package mock -destination ./command.go github.com/rws-framework/rws-lambda/command Network,Permissions,FileSystems,Packager,Functions,Hooks,Uploader,LogTailer

package mock
