package sqlinline

const QInsertUsageEvent = `--sql 7c1f2b9e-4d3a-4f68-9b21-5e8c0a7d41f6
insert into usage_events(id, profile_id, event_type, success, created_at, properties)
values (gen_random_uuid(), $1::uuid, $2::text, $3::boolean, now(), coalesce($4::jsonb, '{}'::jsonb));
`

const QStatsSummary = `--sql 3e9a54c1-88f2-4b07-a6d4-1c2f7e0b9a35
select
    (select count(*) from profiles) as total_profiles,
    (select count(*) from usage_events where event_type = 'GENERATION' and success) as generations_granted,
    (select count(*) from usage_events where event_type = 'GENERATION' and not success) as generations_denied,
    (select count(*) from usage_events where event_type = 'ACTIVATION' and success) as activations_ok,
    (select count(*) from usage_events where event_type = 'ACTIVATION' and not success) as activations_failed,
    (select count(*) from plan_changes) as plan_changes,
    (select count(*) from usage_events where created_at::date = current_date) as events_today,
    (select count(*) from (select email from profiles group by email having count(*) > 1) d) as duplicate_emails;
`
