package graph

var schema = `
CREATE TABLE IF NOT EXISTS blobs (
	digest    	TEXT NOT NULL,
	media_type	TEXT NOT NULL,
	size      	INTEGER NOT NULL,
	PRIMARY KEY (digest)
);

CREATE TABLE IF NOT EXISTS manifests (
	digest            	TEXT NOT NULL,
	schema_version    	INTEGER NOT NULL,
	media_type        	TEXT NOT NULL,
	config_blob_digest	TEXT NULL REFERENCES blobs(digest),
	PRIMARY KEY (digest)
);

CREATE TABLE IF NOT EXISTS manifest_blobs (
	manifest_digest	TEXT NOT NULL REFERENCES manifests(digest) ON DELETE CASCADE,
	blob_digest    	TEXT NOT NULL REFERENCES blobs(digest),
	position       	INTEGER NOT NULL,
	PRIMARY KEY (manifest_digest, blob_digest)
);

CREATE INDEX IF NOT EXISTS manifest_blobs_blob_digest
	ON manifest_blobs (blob_digest);

CREATE TABLE IF NOT EXISTS manifest_lists (
	digest        	TEXT NOT NULL,
	schema_version	INTEGER NOT NULL,
	media_type    	TEXT NOT NULL,
	PRIMARY KEY (digest)
);

CREATE TABLE IF NOT EXISTS manifest_list_manifests (
	list_digest    	TEXT NOT NULL REFERENCES manifest_lists(digest) ON DELETE CASCADE,
	manifest_digest	TEXT NOT NULL REFERENCES manifests(digest),
	architecture   	TEXT NOT NULL DEFAULT '',
	os             	TEXT NOT NULL DEFAULT '',
	os_version     	TEXT NOT NULL DEFAULT '',
	os_features    	TEXT NOT NULL DEFAULT '',
	features       	TEXT NOT NULL DEFAULT '',
	variant        	TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (list_digest, manifest_digest)
);

CREATE TABLE IF NOT EXISTS manifest_tags (
	name           	TEXT NOT NULL,
	manifest_digest	TEXT NOT NULL REFERENCES manifests(digest),
	PRIMARY KEY (name, manifest_digest)
);

CREATE INDEX IF NOT EXISTS manifest_tags_name
	ON manifest_tags (name);

CREATE TABLE IF NOT EXISTS manifest_list_tags (
	name       	TEXT NOT NULL,
	list_digest	TEXT NOT NULL REFERENCES manifest_lists(digest),
	PRIMARY KEY (name, list_digest)
);

CREATE INDEX IF NOT EXISTS manifest_list_tags_name
	ON manifest_list_tags (name);
`
