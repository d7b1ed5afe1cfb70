// Package config loads the fm configuration file.
//
// The file is YAML. It is checked against an embedded CUE schema, which
// also supplies the defaults, and decoded into Config:
//
//	default_backend: localfs
//	buffer_size: 65536
//	log_level: debug
//	exclude: ["*.tmp", ".git"]
//	metrics_addr: ":9100"
//	s3:
//	  - name: backup
//	    endpoint: localhost:9000
//	    bucket: files
//	    access_key: minio
//	    secret_key: minio123
//	sftp:
//	  - host: build.example.com
//	    user: deploy
//	    private_key_file: /home/deploy/.ssh/id_ed25519
//	    timeout: 5s
//
// Every failure caused by the file's content carries
// errors.CodeInvalidArgument. When validation fails the error context
// holds the individual problems under "issues".
package config
