package version

// Version is the roomtalk build version, set at release time with
//
//	go build -ldflags="-X 'github.com/BioHazard786/roomtalk/internal/version.Version=v1.0.0'"
var Version = "dev"
